package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkgate/internal/entities"
)

func TestLinkResponseNeverEchoesPassword(t *testing.T) {
	link := &entities.ShortLink{
		ShortCode:     "Ab3dEf",
		OriginalURL:   "https://example.com/a",
		ExpiryPolicy:  entities.ExpiryNever,
		CustomOptions: entities.CustomOptions{Password: "hunter2"},
	}

	body, err := json.Marshal(NewLinkResponse(link, "https://sho.rt"))
	require.NoError(t, err)

	assert.NotContains(t, string(body), "hunter2")
	assert.Contains(t, string(body), `"passwordProtected":true`)
	assert.Contains(t, string(body), `"shortUrl":"https://sho.rt/Ab3dEf"`)
}

func TestLinkResponseOmitsEmptyOptions(t *testing.T) {
	resp := NewLinkResponse(&entities.ShortLink{ShortCode: "x"}, "")
	assert.Nil(t, resp.CustomOptions)
}

func TestAdminLinkResponse(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	link := &entities.ShortLink{ID: 7, ShortCode: "x", ExpiresAt: &past, SourceIP: "203.0.113.9"}

	resp := NewAdminLinkResponse(link, "https://sho.rt", time.Now())
	assert.True(t, resp.IsExpired)
	assert.Equal(t, "203.0.113.9", resp.SourceIP)
	assert.Equal(t, int64(7), resp.ID)
}

func TestSiteStatusHidesMaintenanceFieldsWhenOff(t *testing.T) {
	eta := time.Now()
	resp := NewSiteStatusResponse(entities.SiteSettings{IsPrivate: true, MaintenanceMessage: "old", EstimatedCompletion: &eta})
	assert.Equal(t, entities.SiteModePrivate, resp.Mode)
	assert.Empty(t, resp.MaintenanceMessage)
	assert.Nil(t, resp.EstimatedCompletion)

	settings := NewSettingsResponse(entities.SiteSettings{SitePasswordHash: "$2a$10$x"})
	assert.True(t, settings.HasSitePassword)
}
