package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"linkgate/internal/entities"
)

const linkColumns = `id, short_code, original_url, created_at, expires_at, expiry_policy,
		clicks, is_active, description, custom_options, source_ip, user_agent`

type linkRepository struct {
	db *sql.DB
}

// NewLinkRepository creates a Postgres-backed link repository
func NewLinkRepository(db *sql.DB) LinkRepository {
	return &linkRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*entities.ShortLink, error) {
	var (
		link    entities.ShortLink
		policy  string
		options []byte
	)
	err := row.Scan(
		&link.ID,
		&link.ShortCode,
		&link.OriginalURL,
		&link.CreatedAt,
		&link.ExpiresAt,
		&policy,
		&link.Clicks,
		&link.IsActive,
		&link.Description,
		&options,
		&link.SourceIP,
		&link.UserAgent,
	)
	if err != nil {
		return nil, err
	}

	link.ExpiryPolicy = entities.ExpiryPolicy(policy)
	if len(options) > 0 {
		if err := json.Unmarshal(options, &link.CustomOptions); err != nil {
			return nil, fmt.Errorf("failed to decode custom options: %w", err)
		}
	}
	return &link, nil
}

func encodeOptions(opts entities.CustomOptions) (string, error) {
	b, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("failed to encode custom options: %w", err)
	}
	return string(b), nil
}

func utcOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// Create inserts a new link. A taken short code surfaces as ErrDuplicateCode.
func (r *linkRepository) Create(ctx context.Context, params CreateLinkParams) (*entities.ShortLink, error) {
	options, err := encodeOptions(params.CustomOptions)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO short_links (short_code, original_url, expires_at, expiry_policy, custom_options, source_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
		RETURNING ` + linkColumns

	link, err := scanLink(r.db.QueryRowContext(ctx, query,
		params.ShortCode,
		params.OriginalURL,
		utcOrNil(params.ExpiresAt),
		string(params.ExpiryPolicy),
		options,
		params.SourceIP,
		params.UserAgent,
	))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("failed to create link %q: %w", params.ShortCode, ErrDuplicateCode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	return link, nil
}

// FindByShortCode finds a link by its short code, expired or not
func (r *linkRepository) FindByShortCode(ctx context.Context, code string) (*entities.ShortLink, error) {
	query := `SELECT ` + linkColumns + ` FROM short_links WHERE short_code = $1`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find link: %w", err)
	}

	return link, nil
}

func (r *linkRepository) FindByURL(ctx context.Context, url string, policy entities.ExpiryPolicy, opts entities.CustomOptions) (*entities.ShortLink, error) {
	options, err := encodeOptions(opts)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + linkColumns + `
		FROM short_links
		WHERE original_url = $1
		AND expiry_policy = $2
		AND custom_options = $3::jsonb
		AND is_active
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, url, string(policy), options))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find link by url: %w", err)
	}

	return link, nil
}

// IncrementClicks atomically bumps the click counter
func (r *linkRepository) IncrementClicks(ctx context.Context, code string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE short_links SET clicks = clicks + 1 WHERE short_code = $1`, code)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}
	return expectOneRow(result)
}

// Delete removes a link together with its click events.
func (r *linkRepository) Delete(ctx context.Context, code string) (bool, error) {
	var deleted bool
	err := execTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM click_events WHERE short_code = $1`, code); err != nil {
			return fmt.Errorf("failed to delete click events: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM short_links WHERE short_code = $1`, code)
		if err != nil {
			return fmt.Errorf("failed to delete link: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// ListAll returns every link, newest first
func (r *linkRepository) ListAll(ctx context.Context) ([]*entities.ShortLink, error) {
	query := `SELECT ` + linkColumns + ` FROM short_links ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := make([]*entities.ShortLink, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

func (r *linkRepository) ToggleActive(ctx context.Context, code string) (*entities.ShortLink, error) {
	query := `
		UPDATE short_links SET is_active = NOT is_active
		WHERE short_code = $1
		RETURNING ` + linkColumns

	link, err := scanLink(r.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle link: %w", err)
	}
	return link, nil
}

// UpdateDescription sets the description; an empty string clears it.
func (r *linkRepository) UpdateDescription(ctx context.Context, code, description string) (*entities.ShortLink, error) {
	var value any
	if description != "" {
		value = description
	}

	query := `
		UPDATE short_links SET description = $2
		WHERE short_code = $1
		RETURNING ` + linkColumns

	link, err := scanLink(r.db.QueryRowContext(ctx, query, code, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update description: %w", err)
	}
	return link, nil
}

func (r *linkRepository) PurgeExpired(ctx context.Context, before time.Time) ([]string, error) {
	codes := make([]string, 0)
	err := execTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`DELETE FROM short_links WHERE expires_at IS NOT NULL AND expires_at < $1 RETURNING short_code`,
			before.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to purge links: %w", err)
		}
		for rows.Next() {
			var code string
			if err := rows.Scan(&code); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan purged code: %w", err)
			}
			codes = append(codes, code)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(codes) == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM click_events WHERE short_code = ANY($1)`, pq.Array(codes)); err != nil {
			return fmt.Errorf("failed to purge click events: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
