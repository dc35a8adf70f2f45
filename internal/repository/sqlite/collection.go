package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/model"
)

// LoadCollection reads an owner's briefings in stored order.
func (db *DB) LoadCollection(ctx context.Context, ownerID string) ([]model.Briefing, error) {
	var data string
	err := db.conn.QueryRowContext(ctx,
		`SELECT data FROM collections WHERE user_id = ?`, ownerID,
	).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return []model.Briefing{}, nil
		}
		return nil, fmt.Errorf("sqlite: loading collection for %s: %w", ownerID, err)
	}

	var briefings []model.Briefing
	if err := json.Unmarshal([]byte(data), &briefings); err != nil {
		return nil, fmt.Errorf("sqlite: decoding collection for %s: %w", ownerID, err)
	}
	if briefings == nil {
		briefings = []model.Briefing{}
	}
	return briefings, nil
}

// SaveCollection overwrites the owner's collection and its owner index in one
// transaction. Either both change or neither does.
func (db *DB) SaveCollection(ctx context.Context, ownerID string, briefings []model.Briefing) error {
	if briefings == nil {
		briefings = []model.Briefing{}
	}
	data, err := json.Marshal(briefings)
	if err != nil {
		return fmt.Errorf("sqlite: encoding collection for %s: %w", ownerID, err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning collection save: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO collections (user_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		ownerID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing collection for %s: %w", ownerID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM briefing_owners WHERE user_id = ?`, ownerID); err != nil {
		return fmt.Errorf("sqlite: clearing owner index for %s: %w", ownerID, err)
	}
	for _, b := range briefings {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO briefing_owners (briefing_id, user_id) VALUES (?, ?)`,
			b.ID, ownerID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: indexing briefing %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing collection for %s: %w", ownerID, err)
	}
	return nil
}

// OwnerOf resolves the owner of a briefing through the owner index.
func (db *DB) OwnerOf(ctx context.Context, briefingID string) (string, error) {
	var ownerID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id FROM briefing_owners WHERE briefing_id = ?`, briefingID,
	).Scan(&ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", apperror.NotFound("briefing", briefingID)
		}
		return "", fmt.Errorf("sqlite: resolving owner of %s: %w", briefingID, err)
	}
	return ownerID, nil
}
