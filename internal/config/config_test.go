package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/links")
	t.Setenv("SITE_TOKEN_SECRET", "s3cret")
	t.Setenv("BASE_URL", "https://sho.rt/")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://sho.rt", cfg.BaseURL)
	assert.Equal(t, 1, cfg.CreateRateLimit)
	assert.Equal(t, 60*time.Second, cfg.CreateRateWindow)
	assert.Equal(t, 10, cfg.CodeMaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.SiteTokenTTL)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CREATE_RATE_LIMIT", "5")
	t.Setenv("CREATE_RATE_WINDOW_SECONDS", "10")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("VERIFY_RATE_LIMIT_RPS", "0.5")
	t.Setenv("CODE_LENGTH", "not-a-number")

	cfg := Load()

	assert.Equal(t, 5, cfg.CreateRateLimit)
	assert.Equal(t, 10*time.Second, cfg.CreateRateWindow)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 0.5, cfg.VerifyRateRPS)
	assert.Equal(t, 6, cfg.CodeLength)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		t.Setenv("DATABASE_URL", MemoryDatabaseURL)
		t.Setenv("SITE_TOKEN_SECRET", "s3cret")
		return Load()
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing database", func(c *Config) { c.DatabaseURL = "" }},
		{"missing token secret", func(c *Config) { c.SiteTokenSecret = "" }},
		{"local timezone", func(c *Config) { c.StatsTimezone = "Local" }},
		{"unknown timezone", func(c *Config) { c.StatsTimezone = "Mars/Olympus" }},
		{"zero rate limit", func(c *Config) { c.CreateRateLimit = 0 }},
		{"short codes", func(c *Config) { c.CodeLength = 2 }},
		{"no attempts", func(c *Config) { c.CodeMaxAttempts = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{StatsTimezone: "Europe/Berlin"}
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}
