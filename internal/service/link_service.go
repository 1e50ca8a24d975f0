package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"linkgate/internal/analytics"
	"linkgate/internal/apperr"
	"linkgate/internal/cache"
	"linkgate/internal/codegen"
	"linkgate/internal/entities"
	"linkgate/internal/gate"
	"linkgate/internal/logging"
	"linkgate/internal/metrics"
	"linkgate/internal/ratelimit"
	"linkgate/internal/repository"
)

// LinkService creates short links and resolves them to destinations
type LinkService interface {
	Shorten(ctx context.Context, in ShortenInput) (*ShortenResult, error)
	Resolve(ctx context.Context, in ResolveInput) (*entities.ShortLink, error)
	// Lookup returns a link that could currently be resolved, without
	// gating or counting a click.
	Lookup(ctx context.Context, code string) (*entities.ShortLink, error)
}

type ShortenInput struct {
	URL       string
	ExpiresIn string
	Options   entities.CustomOptions
	SourceIP  string
	UserAgent string
}

type ShortenResult struct {
	Link *entities.ShortLink
	// Deduplicated is set when an existing link was returned.
	Deduplicated bool
}

type ResolveInput struct {
	Code     string
	Password string
	Caller   gate.Caller
	Request  analytics.RequestInfo
}

// ClickRecorder accepts click events without blocking.
type ClickRecorder interface {
	Record(e entities.ClickEvent) bool
}

type LinkServiceConfig struct {
	SelfHost string
	CacheTTL time.Duration
}

type linkService struct {
	links    repository.LinkRepository
	cache    cache.Cache
	codes    *codegen.Generator
	limiter  *ratelimit.Limiter
	gate     *gate.Gate
	recorder ClickRecorder
	cfg      LinkServiceConfig
	now      func() time.Time
}

func NewLinkService(
	links repository.LinkRepository,
	cacheClient cache.Cache,
	codes *codegen.Generator,
	limiter *ratelimit.Limiter,
	g *gate.Gate,
	recorder ClickRecorder,
	cfg LinkServiceConfig,
) LinkService {
	if cacheClient == nil {
		cacheClient = cache.Nop{}
	}
	return &linkService{
		links:    links,
		cache:    cacheClient,
		codes:    codes,
		limiter:  limiter,
		gate:     g,
		recorder: recorder,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Shorten validates the destination, applies the creation rate limit and
// returns either an equivalent existing link or a newly created one.
func (s *linkService) Shorten(ctx context.Context, in ShortenInput) (*ShortenResult, error) {
	destination, err := ValidateDestination(in.URL, s.cfg.SelfHost)
	if err != nil {
		return nil, err
	}

	policy, ok := entities.ParseExpiryPolicy(in.ExpiresIn)
	if !ok {
		return nil, apperr.InvalidInput("expiresIn must be one of 1d, 7d, 30d, 365d, never")
	}

	// Checked before dedupe: a repeat of an existing link still costs quota.
	if d := s.limiter.Allow(ctx, in.SourceIP); !d.Allowed {
		return nil, apperr.RateLimited("too many links created, try again later").
			WithDetail("retryAfter", int(d.RetryAfter.Round(time.Second)/time.Second))
	}

	existing, err := s.links.FindByURL(ctx, destination, policy, in.Options)
	switch {
	case err == nil && !existing.IsExpired(s.now()):
		metrics.LinksCreated.WithLabelValues("deduplicated").Inc()
		return &ShortenResult{Link: existing, Deduplicated: true}, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, apperr.Wrap(apperr.KindInternal, "failed to look up existing link", err)
	}

	link, attempts, err := codegen.Claim(ctx, s.codes, func(ctx context.Context, code string) (*entities.ShortLink, error) {
		return s.links.Create(ctx, repository.CreateLinkParams{
			ShortCode:     code,
			OriginalURL:   destination,
			ExpiresAt:     policy.ExpiresAt(s.now()),
			ExpiryPolicy:  policy,
			CustomOptions: in.Options,
			SourceIP:      in.SourceIP,
			UserAgent:     in.UserAgent,
		})
	})
	metrics.CodeGenerationAttempts.Observe(float64(attempts))
	if errors.Is(err, codegen.ErrExhausted) {
		logging.Ctx(ctx).Error().Err(err).Bool("alert", true).Int("attempts", attempts).
			Msg("short code space exhausted")
		return nil, apperr.Wrap(apperr.KindGenerationExhausted, "failed to generate a unique short code", err)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create link", err)
	}

	metrics.LinksCreated.WithLabelValues("created").Inc()
	logging.Ctx(ctx).Info().Str("short_code", link.ShortCode).Str("expires_in", string(policy)).
		Int("attempts", attempts).Msg("link created")
	return &ShortenResult{Link: link}, nil
}

// Resolve runs the redirect checks in order: site mode, existence,
// expiration, active flag, link password. Only a request that passes all of
// them counts as a click.
func (s *linkService) Resolve(ctx context.Context, in ResolveInput) (*entities.ShortLink, error) {
	if err := s.gate.CheckSite(ctx, in.Caller); err != nil {
		s.observe(err)
		return nil, err
	}

	link, err := s.Lookup(ctx, in.Code)
	if err != nil {
		s.observe(err)
		return nil, err
	}

	if err := gate.CheckLinkPassword(link, in.Password); err != nil {
		s.observe(err)
		return nil, err
	}

	if err := s.links.IncrementClicks(ctx, link.ShortCode); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("short_code", link.ShortCode).Msg("failed to increment clicks")
	} else {
		link.Clicks++
	}
	s.recorder.Record(analytics.NewClickEvent(link.ShortCode, in.Request, s.now()))

	metrics.Redirects.WithLabelValues("ok").Inc()
	return link, nil
}

func (s *linkService) Lookup(ctx context.Context, code string) (*entities.ShortLink, error) {
	link, err := s.find(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("short link not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load link", err)
	}

	if link.IsExpired(s.now()) {
		return nil, apperr.Gone("short link has expired").WithDetail("expiredAt", link.ExpiresAt.UTC().Format(time.RFC3339))
	}
	// Inactive links look exactly like unknown ones.
	if !link.IsActive {
		return nil, apperr.NotFound("short link not found")
	}
	return link, nil
}

// find reads through the link cache.
func (s *linkService) find(ctx context.Context, code string) (*entities.ShortLink, error) {
	key := cache.LinkKey(code)

	var cached entities.ShortLink
	err := s.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logging.Ctx(ctx).Debug().Err(err).Str("short_code", code).Msg("link cache read failed")
	}

	link, err := s.links.FindByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, link, s.cfg.CacheTTL); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("short_code", code).Msg("link cache write failed")
	}
	return link, nil
}

func (s *linkService) observe(err error) {
	metrics.Redirects.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return "not_found"
	case apperr.KindGone:
		return "expired"
	case apperr.KindUnauthorized:
		return "unauthorized"
	case apperr.KindServiceUnavailable:
		return "maintenance"
	default:
		return "error"
	}
}

// RetryAfterSeconds formats a rate-limit or maintenance hint for the
// Retry-After header. It returns "" when err carries none.
func RetryAfterSeconds(err error, now time.Time) string {
	if secs, ok := apperr.DetailsOf(err)["retryAfter"].(int); ok && secs > 0 {
		return strconv.Itoa(secs)
	}
	if secs := gate.RetryAfter(err, now); secs > 0 {
		return strconv.Itoa(secs)
	}
	return ""
}
