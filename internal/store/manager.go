package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/sakif/briefme/internal/repository"
)

// Manager hands out stores to concurrent callers. Calls for the same owner
// run one at a time; calls for different owners run in parallel. Each call
// gets a store freshly loaded from the repository, so a collection written
// by another process is picked up on the next call.
type Manager struct {
	repo repository.CollectionRepository
	base Notifier

	mu    sync.Mutex
	locks map[string]*ownerLock
}

// ownerLock is dropped from the map once no caller holds or waits on it, so
// the map only ever holds owners with a call in flight.
type ownerLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager returns a Manager over repo. Every notice is also sent to base,
// which may be nil.
func NewManager(repo repository.CollectionRepository, base Notifier) *Manager {
	return &Manager{
		repo:  repo,
		base:  base,
		locks: make(map[string]*ownerLock),
	}
}

func (m *Manager) acquire(owner string) *ownerLock {
	m.mu.Lock()
	l, ok := m.locks[owner]
	if !ok {
		l = &ownerLock{}
		m.locks[owner] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return l
}

func (m *Manager) release(owner string, l *ownerLock) {
	l.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, owner)
	}
}

// WithOwner runs fn with owner's store while holding owner's lock. Notices
// go to n as well as to the manager's base notifier.
func (m *Manager) WithOwner(ctx context.Context, owner string, n Notifier, fn func(*Store) error) error {
	l := m.acquire(owner)
	defer m.release(owner, l)

	s, err := Open(ctx, m.repo, owner, tee(m.base, n))
	if err != nil {
		return err
	}
	return fn(s)
}

// WithBriefingOwner resolves the owner of a briefing through the repository
// index and then behaves like WithOwner. An unknown briefing id yields
// apperror.ErrNotFound.
func (m *Manager) WithBriefingOwner(ctx context.Context, briefingID string, n Notifier, fn func(*Store) error) error {
	owner, err := m.repo.OwnerOf(ctx, briefingID)
	if err != nil {
		return fmt.Errorf("store: resolving owner of %s: %w", briefingID, err)
	}
	return m.WithOwner(ctx, owner, n, fn)
}

func tee(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(n Notice) {
		for _, to := range notifiers {
			if to != nil {
				to.Notify(n)
			}
		}
	})
}
