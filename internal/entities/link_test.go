package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiryPolicy(t *testing.T) {
	tests := []struct {
		in   string
		want ExpiryPolicy
		ok   bool
	}{
		{"", ExpiryNever, true},
		{"never", ExpiryNever, true},
		{"1d", ExpiryOneDay, true},
		{"7D", ExpirySevenDays, true},
		{" 30d ", ExpiryThirtyDays, true},
		{"365d", ExpiryOneYear, true},
		{"2d", "", false},
		{"forever", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseExpiryPolicy(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestExpiryPolicyExpiresAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Nil(t, ExpiryNever.ExpiresAt(now))

	got := ExpirySevenDays.ExpiresAt(now)
	require.NotNil(t, got)
	assert.Equal(t, now.Add(7*24*time.Hour), *got)
}

func TestShortLinkIsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	assert.False(t, (&ShortLink{}).IsExpired(now))
	assert.True(t, (&ShortLink{ExpiresAt: &past}).IsExpired(now))
	assert.True(t, (&ShortLink{ExpiresAt: &now}).IsExpired(now))
	assert.False(t, (&ShortLink{ExpiresAt: &future}).IsExpired(now))
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "example.com", DomainOf("https://www.Example.com/a?b=c"))
	assert.Equal(t, "go.dev", DomainOf("http://go.dev:8080/x"))
	assert.Equal(t, "", DomainOf("not a url"))
}

func TestSiteSettingsMode(t *testing.T) {
	assert.Equal(t, SiteModeNormal, SiteSettings{}.Mode())
	assert.Equal(t, SiteModePrivate, SiteSettings{IsPrivate: true}.Mode())
	assert.Equal(t, SiteModeMaintenance, SiteSettings{IsMaintenanceMode: true}.Mode())
	assert.Equal(t, SiteModeMaintenance, SiteSettings{IsPrivate: true, IsMaintenanceMode: true}.Mode())
}
