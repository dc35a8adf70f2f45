// Package memory is a map-backed repository.Storage. Tests use it to drive
// the store and services without SQLite, and it can be told to fail saves to
// exercise the error paths.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/model"
	"github.com/sakif/briefme/internal/repository"
)

var _ repository.Storage = (*Storage)(nil)

// Storage keeps everything in maps guarded by one mutex. Collections are
// stored as encoded JSON so a load never aliases what a caller saved.
type Storage struct {
	mu          sync.Mutex
	users       map[string]model.User // by id
	byEmail     map[string]string     // email → id
	sessions    map[string]time.Time
	collections map[string][]byte
	owners      map[string]string // briefing id → owner id

	saveErr error
	saves   int
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		users:       make(map[string]model.User),
		byEmail:     make(map[string]string),
		sessions:    make(map[string]time.Time),
		collections: make(map[string][]byte),
		owners:      make(map[string]string),
	}
}

// FailSaves makes every SaveCollection return err until it is called with nil.
func (s *Storage) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// Saves reports how many collection saves succeeded.
func (s *Storage) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *Storage) UpsertByEmail(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if id, ok := s.byEmail[user.Email]; ok {
		stored := s.users[id]
		if user.Name != "" {
			stored.Name = user.Name
			s.users[id] = stored
		}
		*user = stored
		return nil
	}

	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()
	s.users[user.ID] = *user
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *Storage) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (s *Storage) SaveSession(_ context.Context, userID string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("memory: saving session: unknown user %s", userID)
	}
	s.sessions[userID] = startedAt
	return nil
}

func (s *Storage) LoadSession(_ context.Context, userID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.sessions[userID]
	if !ok {
		return time.Time{}, apperror.NotFound("session", userID)
	}
	return t, nil
}

func (s *Storage) ClearSession(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func (s *Storage) LoadCollection(_ context.Context, ownerID string) ([]model.Briefing, error) {
	s.mu.Lock()
	data, ok := s.collections[ownerID]
	s.mu.Unlock()

	briefings := []model.Briefing{}
	if !ok {
		return briefings, nil
	}
	if err := json.Unmarshal(data, &briefings); err != nil {
		return nil, fmt.Errorf("memory: decoding collection for %s: %w", ownerID, err)
	}
	return briefings, nil
}

func (s *Storage) SaveCollection(_ context.Context, ownerID string, briefings []model.Briefing) error {
	if briefings == nil {
		briefings = []model.Briefing{}
	}
	data, err := json.Marshal(briefings)
	if err != nil {
		return fmt.Errorf("memory: encoding collection for %s: %w", ownerID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return fmt.Errorf("memory: saving collection for %s: %w", ownerID, s.saveErr)
	}

	s.collections[ownerID] = data
	for id, owner := range s.owners {
		if owner == ownerID {
			delete(s.owners, id)
		}
	}
	for _, b := range briefings {
		s.owners[b.ID] = ownerID
	}
	s.saves++
	return nil
}

func (s *Storage) OwnerOf(_ context.Context, briefingID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.owners[briefingID]
	if !ok {
		return "", apperror.NotFound("briefing", briefingID)
	}
	return owner, nil
}
