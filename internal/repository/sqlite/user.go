package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/model"
	"github.com/sakif/briefme/internal/repository"
)

// compile-time check that *DB implements the full storage contract
var _ repository.Storage = (*DB)(nil)

// UpsertByEmail inserts a user on first login and reuses the stored row on
// every later login with the same email.
//
// Emails are compared case-insensitively: the value is lowercased before it
// is looked up or stored. A non-empty Name replaces the stored one; an empty
// Name keeps it, so logging in never wipes the name given at signup.
func (db *DB) UpsertByEmail(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	// The lookup and the insert share one write transaction, so two logins
	// with a new email cannot both try to insert it.
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning user upsert: %w", err)
	}
	defer tx.Rollback()

	var (
		existingID string
		name       string
		createdAt  time.Time
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM users WHERE email = ?`, user.Email,
	).Scan(&existingID, &name, &createdAt)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by email: %w", err)
	}

	switch {
	case existingID != "" && user.Name == "":
		user.ID = existingID
		user.CreatedAt = createdAt
		user.Name = name
		return nil
	case existingID != "":
		user.ID = existingID
		user.CreatedAt = createdAt
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET name = ? WHERE id = ?`, user.Name, user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
	default:
		user.ID = xid.New().String()
		user.CreatedAt = time.Now().UTC()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
			user.ID, user.Email, user.Name, user.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing user %s: %w", user.Email, err)
	}
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &u, nil
}

// SaveSession overwrites the user's session record.
func (db *DB) SaveSession(ctx context.Context, userID string, startedAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (user_id, started_at) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET started_at = excluded.started_at`,
		userID, startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving session for %s: %w", userID, err)
	}
	return nil
}

// LoadSession returns when the user's current session started.
func (db *DB) LoadSession(ctx context.Context, userID string) (time.Time, error) {
	var startedAt time.Time
	err := db.conn.QueryRowContext(ctx,
		`SELECT started_at FROM sessions WHERE user_id = ?`, userID,
	).Scan(&startedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, apperror.NotFound("session", userID)
		}
		return time.Time{}, fmt.Errorf("sqlite: loading session for %s: %w", userID, err)
	}
	return startedAt, nil
}

// ClearSession removes the user's session record. Clearing a missing session
// is not an error.
func (db *DB) ClearSession(ctx context.Context, userID string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlite: clearing session for %s: %w", userID, err)
	}
	return nil
}
