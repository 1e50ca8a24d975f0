package repository

import (
	"context"
	"database/sql"
	"fmt"

	"linkgate/internal/entities"
)

type clickRepository struct {
	db *sql.DB
}

func NewClickRepository(db *sql.DB) ClickRepository {
	return &clickRepository{db: db}
}

// InsertClicks writes a batch of click events in one transaction
func (r *clickRepository) InsertClicks(ctx context.Context, events []entities.ClickEvent) error {
	if len(events) == 0 {
		return nil
	}

	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO click_events (id, short_code, clicked_at, referrer_domain, device_class, country)
			VALUES ($1, $2, $3, $4, $5, $6)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare click insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range events {
			_, err := stmt.ExecContext(ctx, e.ID, e.ShortCode, e.Timestamp.UTC(), e.ReferrerDomain, e.DeviceClass, e.Country)
			if err != nil {
				return fmt.Errorf("failed to insert click for %s: %w", e.ShortCode, err)
			}
		}
		return nil
	})
}
