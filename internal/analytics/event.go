// Package analytics records click events off the redirect path and rolls
// them up into the dashboard views.
package analytics

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"linkgate/internal/entities"
)

const (
	DeviceBot     = "bot"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"

	ReferrerDirect = "direct"
	CountryUnknown = "unknown"
)

// RequestInfo is the part of a redirect request that click dimensions are
// derived from. None of it is stored verbatim.
type RequestInfo struct {
	Referer     string
	UserAgent   string
	CountryCode string
}

// NewClickEvent builds the event for a successful redirect of code.
func NewClickEvent(code string, info RequestInfo, at time.Time) entities.ClickEvent {
	return entities.ClickEvent{
		ID:             uuid.NewString(),
		ShortCode:      code,
		Timestamp:      at.UTC(),
		ReferrerDomain: ReferrerDomain(info.Referer),
		DeviceClass:    DeviceClass(info.UserAgent),
		Country:        Country(info.CountryCode),
	}
}

func ReferrerDomain(referer string) string {
	if d := entities.DomainOf(referer); d != "" {
		return d
	}
	return ReferrerDirect
}

func DeviceClass(ua string) string {
	if strings.TrimSpace(ua) == "" {
		return DeviceUnknown
	}

	parsed := useragent.New(ua)
	switch {
	case parsed.Bot():
		return DeviceBot
	case strings.Contains(ua, "iPad") || strings.Contains(ua, "Tablet"),
		strings.Contains(ua, "Android") && !strings.Contains(ua, "Mobile"):
		return DeviceTablet
	case parsed.Mobile():
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}

// Country normalizes an ISO 3166 alpha-2 code set by the edge proxy.
// Cloudflare uses XX for unknown and T1 for Tor.
func Country(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 || code == "XX" || code == "T1" {
		return CountryUnknown
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return CountryUnknown
		}
	}
	return code
}
