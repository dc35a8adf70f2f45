// Package repository declares the persistence contracts used by the services.
//
// Briefings are not stored row by row. Each owner has one collection document
// (the ordered list of their briefings, responses embedded) that is read whole
// and overwritten whole on every save. A small index maps each briefing id to
// its owner so that a public share link can be resolved without a session.
package repository

import (
	"context"
	"time"

	"github.com/sakif/briefme/internal/model"
)

// UserRepository stores accounts. Login is mocked, so an account is keyed by
// email and its id is reused for every later login with that email.
type UserRepository interface {
	// UpsertByEmail fills in ID and CreatedAt from the stored row when the
	// email is known, and creates the row otherwise.
	UpsertByEmail(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// SessionRepository keeps the current session record per user. Saving
// overwrites the previous record.
type SessionRepository interface {
	SaveSession(ctx context.Context, userID string, startedAt time.Time) error
	// LoadSession returns apperror.ErrNotFound when the user is logged out.
	LoadSession(ctx context.Context, userID string) (time.Time, error)
	ClearSession(ctx context.Context, userID string) error
}

// CollectionRepository persists briefing collections.
type CollectionRepository interface {
	// LoadCollection returns an empty, non-nil slice for an owner with no
	// saved collection.
	LoadCollection(ctx context.Context, ownerID string) ([]model.Briefing, error)
	// SaveCollection overwrites the owner's collection and rewrites the
	// owner index. An empty collection is saved like any other.
	SaveCollection(ctx context.Context, ownerID string, briefings []model.Briefing) error
	// OwnerOf returns apperror.ErrNotFound for an unknown briefing id.
	OwnerOf(ctx context.Context, briefingID string) (string, error)
}

// Storage is everything the application persists.
type Storage interface {
	UserRepository
	SessionRepository
	CollectionRepository
}
