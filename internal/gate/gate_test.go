package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkgate/internal/apperr"
	"linkgate/internal/entities"
)

type staticSettings struct {
	settings entities.SiteSettings
	err      error
}

func (s staticSettings) Current(context.Context) (entities.SiteSettings, error) {
	return s.settings, s.err
}

func TestCheckSiteNormal(t *testing.T) {
	g := New(staticSettings{}, NewTokenIssuer("secret", time.Hour))
	assert.NoError(t, g.CheckSite(context.Background(), Caller{}))
}

func TestCheckSiteMaintenance(t *testing.T) {
	eta := time.Now().Add(30 * time.Minute)
	g := New(staticSettings{settings: entities.SiteSettings{
		IsMaintenanceMode:   true,
		IsPrivate:           true,
		MaintenanceMessage:  "database upgrade",
		EstimatedCompletion: &eta,
	}}, NewTokenIssuer("secret", time.Hour))

	err := g.CheckSite(context.Background(), Caller{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindServiceUnavailable, apperr.KindOf(err))
	assert.Equal(t, "database upgrade", apperr.PublicMessage(err))

	retry := RetryAfter(err, time.Now())
	assert.InDelta(t, 30*60, retry, 2)

	// admins are let through
	assert.NoError(t, g.CheckSite(context.Background(), Caller{IsAdmin: true}))
}

func TestCheckSitePrivate(t *testing.T) {
	tokens := NewTokenIssuer("secret", time.Hour)
	settings := entities.SiteSettings{IsPrivate: true, SitePasswordHash: "$2a$10$hash-one"}
	g := New(staticSettings{settings: settings}, tokens)
	ctx := context.Background()

	err := g.CheckSite(ctx, Caller{})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	assert.Equal(t, true, apperr.DetailsOf(err)["requiresSitePassword"])

	token, _, err := tokens.Issue(settings.SitePasswordHash)
	require.NoError(t, err)
	assert.NoError(t, g.CheckSite(ctx, Caller{SiteToken: token}))

	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(g.CheckSite(ctx, Caller{SiteToken: "garbage"})))
}

func TestCheckSiteSettingsError(t *testing.T) {
	g := New(staticSettings{err: errors.New("db down")}, NewTokenIssuer("secret", time.Hour))
	err := g.CheckSite(context.Background(), Caller{})
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestTokenRevokedByPasswordChange(t *testing.T) {
	tokens := NewTokenIssuer("secret", time.Hour)

	token, _, err := tokens.Issue("hash-one")
	require.NoError(t, err)
	require.NoError(t, tokens.Verify(token, "hash-one"))
	assert.ErrorIs(t, tokens.Verify(token, "hash-two"), ErrInvalidToken)
}

func TestTokenExpires(t *testing.T) {
	now := time.Now()
	tokens := NewTokenIssuer("secret", time.Hour)
	tokens.now = func() time.Time { return now }

	token, expiresAt, err := tokens.Issue("h")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	tokens.now = func() time.Time { return now.Add(2 * time.Hour) }
	assert.ErrorIs(t, tokens.Verify(token, "h"), ErrInvalidToken)
}

func TestTokenWrongSecret(t *testing.T) {
	token, _, err := NewTokenIssuer("secret-a", time.Hour).Issue("h")
	require.NoError(t, err)
	assert.ErrorIs(t, NewTokenIssuer("secret-b", time.Hour).Verify(token, "h"), ErrInvalidToken)
}

func TestCheckLinkPassword(t *testing.T) {
	open := &entities.ShortLink{ShortCode: "open01"}
	assert.NoError(t, CheckLinkPassword(open, ""))

	locked := &entities.ShortLink{ShortCode: "lock01", CustomOptions: entities.CustomOptions{Password: "hunter2"}}

	err := CheckLinkPassword(locked, "")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	assert.Equal(t, true, apperr.DetailsOf(err)["requiresPassword"])

	err = CheckLinkPassword(locked, "hunter3")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	assert.Equal(t, "incorrect password", apperr.PublicMessage(err))

	assert.NoError(t, CheckLinkPassword(locked, "hunter2"))
}

func TestRetryAfterWithoutEstimate(t *testing.T) {
	assert.Zero(t, RetryAfter(apperr.ServiceUnavailable("down"), time.Now()))
	assert.Zero(t, RetryAfter(nil, time.Now()))
}
