package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"linkgate/internal/entities"
)

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get loads the settings row. A missing row yields the zero (normal) settings.
func (r *settingsRepository) Get(ctx context.Context) (entities.SiteSettings, error) {
	var s entities.SiteSettings
	err := r.db.QueryRowContext(ctx, `
		SELECT is_private, is_maintenance_mode, maintenance_message, estimated_completion, site_password_hash, updated_at
		FROM site_settings
		WHERE id = 1
	`).Scan(
		&s.IsPrivate,
		&s.IsMaintenanceMode,
		&s.MaintenanceMessage,
		&s.EstimatedCompletion,
		&s.SitePasswordHash,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.SiteSettings{}, nil
	}
	if err != nil {
		return entities.SiteSettings{}, fmt.Errorf("failed to load site settings: %w", err)
	}
	return s, nil
}

// Save upserts the settings row and returns the stored values.
func (r *settingsRepository) Save(ctx context.Context, s entities.SiteSettings) (entities.SiteSettings, error) {
	var saved entities.SiteSettings
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO site_settings (id, is_private, is_maintenance_mode, maintenance_message, estimated_completion, site_password_hash, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			is_private = EXCLUDED.is_private,
			is_maintenance_mode = EXCLUDED.is_maintenance_mode,
			maintenance_message = EXCLUDED.maintenance_message,
			estimated_completion = EXCLUDED.estimated_completion,
			site_password_hash = EXCLUDED.site_password_hash,
			updated_at = EXCLUDED.updated_at
		RETURNING is_private, is_maintenance_mode, maintenance_message, estimated_completion, site_password_hash, updated_at
	`,
		s.IsPrivate,
		s.IsMaintenanceMode,
		s.MaintenanceMessage,
		utcOrNil(s.EstimatedCompletion),
		s.SitePasswordHash,
	).Scan(
		&saved.IsPrivate,
		&saved.IsMaintenanceMode,
		&saved.MaintenanceMessage,
		&saved.EstimatedCompletion,
		&saved.SitePasswordHash,
		&saved.UpdatedAt,
	)
	if err != nil {
		return entities.SiteSettings{}, fmt.Errorf("failed to save site settings: %w", err)
	}
	return saved, nil
}
