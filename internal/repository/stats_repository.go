package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"linkgate/internal/entities"
)

type statsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) CountLinks(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM short_links WHERE created_at >= $1`, since.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return n, nil
}

// SumClicks totals the per-link counters, which include clicks whose events
// were dropped.
func (r *statsRepository) SumClicks(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(clicks), 0) FROM short_links`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to sum clicks: %w", err)
	}
	return n, nil
}

func (r *statsRepository) CountClicks(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM click_events WHERE clicked_at >= $1`, since.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return n, nil
}

func (r *statsRepository) DailyLinks(ctx context.Context, since time.Time, loc *time.Location) (map[string]int64, error) {
	return r.daily(ctx, `
		SELECT to_char(created_at AT TIME ZONE $2, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM short_links
		WHERE created_at >= $1
		GROUP BY day
	`, since, loc)
}

func (r *statsRepository) DailyClicks(ctx context.Context, since time.Time, loc *time.Location) (map[string]int64, error) {
	return r.daily(ctx, `
		SELECT to_char(clicked_at AT TIME ZONE $2, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM click_events
		WHERE clicked_at >= $1
		GROUP BY day
	`, since, loc)
}

func (r *statsRepository) daily(ctx context.Context, query string, since time.Time, loc *time.Location) (map[string]int64, error) {
	return r.countBy(ctx, query, since.UTC(), loc.String())
}

// LinkClicks returns the click counter of every link that has been clicked.
func (r *statsRepository) LinkClicks(ctx context.Context) ([]entities.LinkClicks, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT short_code, original_url, clicks, custom_options
		FROM short_links
		WHERE clicks > 0
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query link clicks: %w", err)
	}
	defer rows.Close()

	var out []entities.LinkClicks
	for rows.Next() {
		var (
			lc      entities.LinkClicks
			options []byte
			opts    entities.CustomOptions
		)
		if err := rows.Scan(&lc.ShortCode, &lc.OriginalURL, &lc.Clicks, &options); err != nil {
			return nil, fmt.Errorf("failed to scan link clicks: %w", err)
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &opts); err != nil {
				return nil, fmt.Errorf("failed to decode custom options: %w", err)
			}
		}
		lc.IsPrivate = opts.IsPrivate
		lc.IsProtected = opts.HasPassword()
		out = append(out, lc)
	}
	return out, rows.Err()
}

var dimensionColumns = map[entities.ClickDimension]string{
	entities.DimensionReferrer: "referrer_domain",
	entities.DimensionDevice:   "device_class",
	entities.DimensionCountry:  "country",
}

func (r *statsRepository) ClickBreakdown(ctx context.Context, dim entities.ClickDimension, since time.Time) (map[string]int64, error) {
	column, ok := dimensionColumns[dim]
	if !ok {
		return nil, fmt.Errorf("unknown click dimension %q", dim)
	}

	query := fmt.Sprintf(`
		SELECT %s, COUNT(*)
		FROM click_events
		WHERE clicked_at >= $1
		GROUP BY %s
	`, column, column)
	return r.countBy(ctx, query, since.UTC())
}

func (r *statsRepository) countBy(ctx context.Context, query string, args ...any) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			key string
			n   int64
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[key] = n
	}
	return counts, rows.Err()
}
