package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"linkgate/internal/entities"
)

var (
	ErrNotFound      = errors.New("link not found")
	ErrDuplicateCode = errors.New("short code already exists")
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// CreateLinkParams holds the values stored for a new link.
type CreateLinkParams struct {
	ShortCode     string
	OriginalURL   string
	ExpiresAt     *time.Time
	ExpiryPolicy  entities.ExpiryPolicy
	CustomOptions entities.CustomOptions
	SourceIP      string
	UserAgent     string
}

// LinkRepository defines the persistence contract for short links
type LinkRepository interface {
	// Create inserts a link, failing with ErrDuplicateCode if the code is taken.
	Create(ctx context.Context, params CreateLinkParams) (*entities.ShortLink, error)
	FindByShortCode(ctx context.Context, code string) (*entities.ShortLink, error)
	// FindByURL returns the newest active link for url created with the same
	// expiry policy and custom options. Expiration is not checked.
	FindByURL(ctx context.Context, url string, policy entities.ExpiryPolicy, opts entities.CustomOptions) (*entities.ShortLink, error)
	IncrementClicks(ctx context.Context, code string) error
	Delete(ctx context.Context, code string) (bool, error)
	ListAll(ctx context.Context) ([]*entities.ShortLink, error)
	ToggleActive(ctx context.Context, code string) (*entities.ShortLink, error)
	UpdateDescription(ctx context.Context, code, description string) (*entities.ShortLink, error)
	// PurgeExpired deletes links that expired before the cutoff and returns their codes.
	PurgeExpired(ctx context.Context, before time.Time) ([]string, error)
}

// ClickRepository appends click events.
type ClickRepository interface {
	InsertClicks(ctx context.Context, events []entities.ClickEvent) error
}

// StatsRepository answers the aggregate queries behind analytics rollups.
// A zero since means "all time".
type StatsRepository interface {
	CountLinks(ctx context.Context, since time.Time) (int64, error)
	SumClicks(ctx context.Context) (int64, error)
	CountClicks(ctx context.Context, since time.Time) (int64, error)
	DailyLinks(ctx context.Context, since time.Time, loc *time.Location) (map[string]int64, error)
	DailyClicks(ctx context.Context, since time.Time, loc *time.Location) (map[string]int64, error)
	LinkClicks(ctx context.Context) ([]entities.LinkClicks, error)
	ClickBreakdown(ctx context.Context, dim entities.ClickDimension, since time.Time) (map[string]int64, error)
}

// SettingsRepository stores the single site settings row.
type SettingsRepository interface {
	Get(ctx context.Context) (entities.SiteSettings, error)
	Save(ctx context.Context, settings entities.SiteSettings) (entities.SiteSettings, error)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// execTx runs fn inside a transaction, rolling back when it fails.
func execTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// DayLayout formats the keys of daily series, matching to_char(..., 'YYYY-MM-DD').
const DayLayout = "2006-01-02"
