package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"linkgate/internal/apperr"
	"linkgate/internal/cache"
	"linkgate/internal/entities"
	"linkgate/internal/logging"
	"linkgate/internal/repository"
)

// AdminService manages existing links on behalf of the operator. Every
// mutation drops the cached copy so replicas stop serving stale state.
type AdminService interface {
	ListLinks(ctx context.Context) ([]*entities.ShortLink, error)
	DeleteLink(ctx context.Context, code string) error
	ToggleLink(ctx context.Context, code string) (*entities.ShortLink, error)
	UpdateDescription(ctx context.Context, code, description string) (*entities.ShortLink, error)
	// Cleanup purges links that expired more than the grace period ago.
	Cleanup(ctx context.Context) ([]string, error)
}

type adminService struct {
	links repository.LinkRepository
	cache cache.Cache
	grace time.Duration
	now   func() time.Time
}

func NewAdminService(links repository.LinkRepository, cacheClient cache.Cache, grace time.Duration) AdminService {
	if cacheClient == nil {
		cacheClient = cache.Nop{}
	}
	return &adminService{links: links, cache: cacheClient, grace: grace, now: time.Now}
}

func (s *adminService) ListLinks(ctx context.Context) ([]*entities.ShortLink, error) {
	links, err := s.links.ListAll(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list links", err)
	}
	return links, nil
}

func (s *adminService) DeleteLink(ctx context.Context, code string) error {
	deleted, err := s.links.Delete(ctx, code)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete link", err)
	}
	if !deleted {
		return apperr.NotFound("short link not found")
	}
	s.invalidate(ctx, code)
	logging.Ctx(ctx).Info().Str("short_code", code).Msg("link deleted")
	return nil
}

func (s *adminService) ToggleLink(ctx context.Context, code string) (*entities.ShortLink, error) {
	link, err := s.links.ToggleActive(ctx, code)
	if err != nil {
		return nil, notFoundOr(err, "failed to toggle link")
	}
	s.invalidate(ctx, code)
	logging.Ctx(ctx).Info().Str("short_code", code).Bool("active", link.IsActive).Msg("link toggled")
	return link, nil
}

func (s *adminService) UpdateDescription(ctx context.Context, code, description string) (*entities.ShortLink, error) {
	link, err := s.links.UpdateDescription(ctx, code, strings.TrimSpace(description))
	if err != nil {
		return nil, notFoundOr(err, "failed to update description")
	}
	s.invalidate(ctx, code)
	return link, nil
}

func (s *adminService) Cleanup(ctx context.Context) ([]string, error) {
	codes, err := s.links.PurgeExpired(ctx, s.now().Add(-s.grace))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to purge expired links", err)
	}
	s.invalidate(ctx, codes...)
	logging.Ctx(ctx).Info().Int("purged", len(codes)).Msg("expired links purged")
	return codes, nil
}

func (s *adminService) invalidate(ctx context.Context, codes ...string) {
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = cache.LinkKey(code)
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Strs("short_codes", codes).Msg("failed to invalidate link cache")
	}
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("short link not found")
	}
	return apperr.Wrap(apperr.KindInternal, msg, err)
}
