package entities

import (
	"net/url"
	"strings"
	"time"
)

// ExpiryPolicy is the closed set of lifetimes a link can be created with
type ExpiryPolicy string

const (
	ExpiryOneDay     ExpiryPolicy = "1d"
	ExpirySevenDays  ExpiryPolicy = "7d"
	ExpiryThirtyDays ExpiryPolicy = "30d"
	ExpiryOneYear    ExpiryPolicy = "365d"
	ExpiryNever      ExpiryPolicy = "never"
)

var expiryDurations = map[ExpiryPolicy]time.Duration{
	ExpiryOneDay:     24 * time.Hour,
	ExpirySevenDays:  7 * 24 * time.Hour,
	ExpiryThirtyDays: 30 * 24 * time.Hour,
	ExpiryOneYear:    365 * 24 * time.Hour,
}

// ParseExpiryPolicy parses a policy name. An empty string means ExpiryNever.
func ParseExpiryPolicy(s string) (ExpiryPolicy, bool) {
	p := ExpiryPolicy(strings.ToLower(strings.TrimSpace(s)))
	if p == "" || p == ExpiryNever {
		return ExpiryNever, true
	}
	if _, ok := expiryDurations[p]; ok {
		return p, true
	}
	return "", false
}

// ExpiresAt returns the expiration instant for a link created at from, or nil
// for links that never expire.
func (p ExpiryPolicy) ExpiresAt(from time.Time) *time.Time {
	d, ok := expiryDurations[p]
	if !ok {
		return nil
	}
	t := from.Add(d).UTC()
	return &t
}

// CustomOptions holds the optional per-link behaviour
type CustomOptions struct {
	Password      string `json:"password,omitempty"`
	IsPrivate     bool   `json:"isPrivate,omitempty"`
	RedirectDelay int    `json:"redirectDelay,omitempty"` // seconds, client-side countdown hint
}

func (o CustomOptions) HasPassword() bool {
	return o.Password != ""
}

// ShortLink represents a shortened URL record
type ShortLink struct {
	ID            int64         `json:"id"`
	ShortCode     string        `json:"shortCode"`
	OriginalURL   string        `json:"originalUrl"`
	CreatedAt     time.Time     `json:"createdAt"`
	ExpiresAt     *time.Time    `json:"expiresAt,omitempty"` // nil means no expiration
	ExpiryPolicy  ExpiryPolicy  `json:"expiryPolicy"`
	Clicks        int64         `json:"clicks"`
	IsActive      bool          `json:"isActive"`
	Description   *string       `json:"description,omitempty"`
	CustomOptions CustomOptions `json:"customOptions"`
	SourceIP      string        `json:"sourceIp,omitempty"`
	UserAgent     string        `json:"userAgent,omitempty"`
}

// IsExpired reports whether the link is past its expiration at now.
func (l *ShortLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// Domain returns the lower-cased destination host without a leading "www.".
func (l *ShortLink) Domain() string {
	return DomainOf(l.OriginalURL)
}

// DomainOf extracts the aggregation domain of a destination URL.
func DomainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
