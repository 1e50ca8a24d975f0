package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MemoryDatabaseURL selects the in-process store (local development only).
const MemoryDatabaseURL = "memory"

type Config struct {
	Port           string
	DatabaseURL    string
	RedisURL       string // Optional, counters fall back to process memory without it
	BaseURL        string // Public base URL short links are served under
	CORSOrigins    []string
	TrustedProxies []string

	LogLevel  string
	LogFormat string

	AdminToken      string // Bearer token for the admin API
	SiteTokenSecret string // HMAC key for site access tokens
	SiteTokenTTL    time.Duration

	CreateRateLimit  int // Link creations allowed per IP per window
	CreateRateWindow time.Duration
	VerifyRateRPS    float64 // Token bucket for password endpoints
	VerifyRateBurst  int

	CodeLength      int
	CodeMaxAttempts int

	StatsTimezone   string
	StatsWindowDays int
	StatsTopN       int

	AnalyticsBuffer    int
	AnalyticsBatchSize int
	AnalyticsFlush     time.Duration

	CacheTTL     time.Duration
	CleanupGrace time.Duration // How long expired links are kept before purge
}

func Load() *Config {
	// Missing .env is fine, the environment is authoritative
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		BaseURL:        strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		CORSOrigins:    getEnvList("CORS_ORIGINS"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		AdminToken:      getEnv("ADMIN_TOKEN", ""),
		SiteTokenSecret: getEnv("SITE_TOKEN_SECRET", ""),
		SiteTokenTTL:    time.Duration(getEnvInt("SITE_TOKEN_TTL_HOURS", 24)) * time.Hour,

		CreateRateLimit:  getEnvInt("CREATE_RATE_LIMIT", 1),
		CreateRateWindow: time.Duration(getEnvInt("CREATE_RATE_WINDOW_SECONDS", 60)) * time.Second,
		VerifyRateRPS:    getEnvFloat("VERIFY_RATE_LIMIT_RPS", 1),
		VerifyRateBurst:  getEnvInt("VERIFY_RATE_LIMIT_BURST", 5),

		CodeLength:      getEnvInt("CODE_LENGTH", 6),
		CodeMaxAttempts: getEnvInt("CODE_MAX_ATTEMPTS", 10),

		StatsTimezone:   getEnv("STATS_TIMEZONE", "UTC"),
		StatsWindowDays: getEnvInt("STATS_WINDOW_DAYS", 30),
		StatsTopN:       getEnvInt("STATS_TOP_N", 10),

		AnalyticsBuffer:    getEnvInt("ANALYTICS_BUFFER", 1024),
		AnalyticsBatchSize: getEnvInt("ANALYTICS_BATCH_SIZE", 100),
		AnalyticsFlush:     time.Duration(getEnvInt("ANALYTICS_FLUSH_SECONDS", 2)) * time.Second,

		CacheTTL:     time.Duration(getEnvInt("CACHE_TTL_MINUTES", 10)) * time.Minute,
		CleanupGrace: time.Duration(getEnvInt("CLEANUP_GRACE_DAYS", 30)) * 24 * time.Hour,
	}
}

// Validate checks the configuration for values the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.SiteTokenSecret == "" {
		errs = append(errs, errors.New("SITE_TOKEN_SECRET is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.CreateRateLimit <= 0 || c.CreateRateWindow <= 0 {
		errs = append(errs, errors.New("CREATE_RATE_LIMIT and CREATE_RATE_WINDOW_SECONDS must be positive"))
	}
	if c.VerifyRateRPS <= 0 || c.VerifyRateBurst <= 0 {
		errs = append(errs, errors.New("VERIFY_RATE_LIMIT_RPS and VERIFY_RATE_LIMIT_BURST must be positive"))
	}
	if c.CodeLength < 4 || c.CodeLength > 16 {
		errs = append(errs, fmt.Errorf("CODE_LENGTH must be between 4 and 16, got %d", c.CodeLength))
	}
	if c.CodeMaxAttempts <= 0 {
		errs = append(errs, errors.New("CODE_MAX_ATTEMPTS must be positive"))
	}
	if c.StatsWindowDays <= 0 || c.StatsTopN <= 0 {
		errs = append(errs, errors.New("STATS_WINDOW_DAYS and STATS_TOP_N must be positive"))
	}
	if c.AnalyticsBuffer <= 0 || c.AnalyticsBatchSize <= 0 || c.AnalyticsFlush <= 0 {
		errs = append(errs, errors.New("analytics buffer, batch size and flush interval must be positive"))
	}

	return errors.Join(errs...)
}

// Location returns the fixed reference timezone used for "today" boundaries.
// Local is rejected since replicas may disagree on it.
func (c *Config) Location() (*time.Location, error) {
	if c.StatsTimezone == "" || strings.EqualFold(c.StatsTimezone, "local") {
		return nil, fmt.Errorf("STATS_TIMEZONE must name an IANA zone, got %q", c.StatsTimezone)
	}
	loc, err := time.LoadLocation(c.StatsTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_TIMEZONE: %w", err)
	}
	return loc, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
