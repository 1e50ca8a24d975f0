package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"linkgate/internal/apperr"
	"linkgate/internal/cache"
	"linkgate/internal/entities"
	"linkgate/internal/gate"
	"linkgate/internal/logging"
	"linkgate/internal/repository"
)

// SiteService owns the site-wide mode and the private-mode password.
type SiteService interface {
	gate.SettingsProvider
	Update(ctx context.Context, in UpdateSettingsInput) (entities.SiteSettings, error)
	// Unlock exchanges the site password for a signed access token.
	Unlock(ctx context.Context, password string) (string, time.Time, error)
}

// UpdateSettingsInput is a partial update; nil fields are left unchanged.
type UpdateSettingsInput struct {
	IsPrivate                *bool
	IsMaintenanceMode        *bool
	MaintenanceMessage       *string
	EstimatedCompletion      *time.Time
	ClearEstimatedCompletion bool
	// SitePassword replaces the password; an empty string removes it.
	SitePassword *string
}

type siteService struct {
	repo   repository.SettingsRepository
	cache  cache.Cache
	tokens *gate.TokenIssuer
	ttl    time.Duration
}

func NewSiteService(repo repository.SettingsRepository, cacheClient cache.Cache, tokens *gate.TokenIssuer, ttl time.Duration) SiteService {
	if cacheClient == nil {
		cacheClient = cache.Nop{}
	}
	return &siteService{repo: repo, cache: cacheClient, tokens: tokens, ttl: ttl}
}

// Current returns the settings, reading through the shared cache.
func (s *siteService) Current(ctx context.Context) (entities.SiteSettings, error) {
	var settings entities.SiteSettings
	err := s.cache.GetJSON(ctx, cache.SettingsKey, &settings)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logging.Ctx(ctx).Debug().Err(err).Msg("settings cache read failed")
	}

	settings, err = s.repo.Get(ctx)
	if err != nil {
		return entities.SiteSettings{}, err
	}
	if err := s.cache.SetJSON(ctx, cache.SettingsKey, settings, s.ttl); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("settings cache write failed")
	}
	return settings, nil
}

func (s *siteService) Update(ctx context.Context, in UpdateSettingsInput) (entities.SiteSettings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return entities.SiteSettings{}, apperr.Wrap(apperr.KindInternal, "failed to load site settings", err)
	}

	if in.IsPrivate != nil {
		settings.IsPrivate = *in.IsPrivate
	}
	if in.IsMaintenanceMode != nil {
		settings.IsMaintenanceMode = *in.IsMaintenanceMode
	}
	if in.MaintenanceMessage != nil {
		settings.MaintenanceMessage = *in.MaintenanceMessage
	}
	if in.ClearEstimatedCompletion {
		settings.EstimatedCompletion = nil
	} else if in.EstimatedCompletion != nil {
		eta := in.EstimatedCompletion.UTC()
		settings.EstimatedCompletion = &eta
	}
	if in.SitePassword != nil {
		settings.SitePasswordHash = ""
		if *in.SitePassword != "" {
			hashed, err := bcrypt.GenerateFromPassword([]byte(*in.SitePassword), bcrypt.DefaultCost)
			if err != nil {
				return entities.SiteSettings{}, fmt.Errorf("failed to hash password: %w", err)
			}
			settings.SitePasswordHash = string(hashed)
		}
	}

	if settings.IsPrivate && settings.SitePasswordHash == "" {
		return entities.SiteSettings{}, apperr.InvalidInput("private mode requires a site password")
	}

	saved, err := s.repo.Save(ctx, settings)
	if err != nil {
		return entities.SiteSettings{}, apperr.Wrap(apperr.KindInternal, "failed to save site settings", err)
	}
	if err := s.cache.Delete(ctx, cache.SettingsKey); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to invalidate settings cache")
	}

	logging.Ctx(ctx).Info().
		Str("mode", string(saved.Mode())).
		Bool("private", saved.IsPrivate).
		Bool("maintenance", saved.IsMaintenanceMode).
		Msg("site settings updated")
	return saved, nil
}

func (s *siteService) Unlock(ctx context.Context, password string) (string, time.Time, error) {
	settings, err := s.Current(ctx)
	if err != nil {
		return "", time.Time{}, apperr.Wrap(apperr.KindInternal, "failed to load site settings", err)
	}
	if settings.SitePasswordHash == "" {
		return "", time.Time{}, apperr.Unauthorized("site password is not set")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(settings.SitePasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, apperr.Unauthorized("incorrect site password").WithDetail("requiresSitePassword", true)
	}

	token, expiresAt, err := s.tokens.Issue(settings.SitePasswordHash)
	if err != nil {
		return "", time.Time{}, apperr.Wrap(apperr.KindInternal, "failed to issue site token", err)
	}
	return token, expiresAt, nil
}
