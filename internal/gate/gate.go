// Package gate decides whether a redirect may be served: first the
// site-wide mode, then the per-link password.
package gate

import (
	"context"
	"crypto/subtle"
	"time"

	"linkgate/internal/apperr"
	"linkgate/internal/entities"
)

// SettingsProvider returns the current site settings.
type SettingsProvider interface {
	Current(ctx context.Context) (entities.SiteSettings, error)
}

// Caller describes who is asking for a redirect.
type Caller struct {
	IsAdmin   bool
	SiteToken string
}

type Gate struct {
	settings SettingsProvider
	tokens   *TokenIssuer
}

func New(settings SettingsProvider, tokens *TokenIssuer) *Gate {
	return &Gate{settings: settings, tokens: tokens}
}

// CheckSite evaluates the site mode. Maintenance rejects every non-admin
// caller; private mode requires a valid site access token.
func (g *Gate) CheckSite(ctx context.Context, caller Caller) error {
	settings, err := g.settings.Current(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to load site settings", err)
	}
	if caller.IsAdmin {
		return nil
	}

	switch settings.Mode() {
	case entities.SiteModeMaintenance:
		msg := settings.MaintenanceMessage
		if msg == "" {
			msg = "site is under maintenance"
		}
		e := apperr.ServiceUnavailable(msg).WithDetail("maintenance", true)
		if settings.EstimatedCompletion != nil {
			e = e.WithDetail("estimatedCompletion", settings.EstimatedCompletion.UTC().Format(time.RFC3339))
		}
		return e

	case entities.SiteModePrivate:
		if caller.SiteToken == "" {
			return apperr.Unauthorized("site password required").WithDetail("requiresSitePassword", true)
		}
		if err := g.tokens.Verify(caller.SiteToken, settings.SitePasswordHash); err != nil {
			return apperr.Wrap(apperr.KindUnauthorized, "site access expired or invalid", err).
				WithDetail("requiresSitePassword", true)
		}
	}
	return nil
}

// CheckLinkPassword enforces the link password, if one is set. The
// comparison is constant-time and the supplied value is never stored.
func CheckLinkPassword(link *entities.ShortLink, supplied string) error {
	if !link.CustomOptions.HasPassword() {
		return nil
	}
	if supplied == "" {
		return apperr.Unauthorized("password required").
			WithDetail("requiresPassword", true).
			WithDetail("shortCode", link.ShortCode)
	}
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(link.CustomOptions.Password)) != 1 {
		return apperr.Unauthorized("incorrect password").
			WithDetail("requiresPassword", true).
			WithDetail("shortCode", link.ShortCode)
	}
	return nil
}

// RetryAfter returns the seconds until the advisory maintenance completion
// carried by err, or zero when there is none or it has passed.
func RetryAfter(err error, now time.Time) int {
	raw, ok := apperr.DetailsOf(err)["estimatedCompletion"].(string)
	if !ok {
		return 0
	}
	eta, perr := time.Parse(time.RFC3339, raw)
	if perr != nil || !eta.After(now) {
		return 0
	}
	return int(eta.Sub(now).Round(time.Second) / time.Second)
}
