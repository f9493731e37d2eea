// internal/store/memory.go
//
// In-memory registry of live session controllers.
// Rounds are ephemeral, so this is the only store they need; finished
// rounds live on in progress persistence, not here.
//
// Characteristics:
//   - Controllers keyed by ID, each tagged with the owning player ID.
//   - Registry map guarded by RWMutex; each entry has its own mutex so Do
//     serializes calls on one controller without blocking the others.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/robalobadob/gerdgame/internal/session"
)

// ErrNotFound is returned for unknown IDs or IDs owned by someone else.
var ErrNotFound = errors.New("not found")

// Store defines the registry interface for live sessions.
type Store interface {
	// Save registers or replaces a controller for owner.
	Save(ctx context.Context, owner string, c *session.Controller) error

	// Do runs fn with exclusive access to the controller id owned by owner.
	Do(ctx context.Context, owner, id string, fn func(c *session.Controller) error) error

	// Delete drops a controller.
	Delete(ctx context.Context, owner, id string) error
}

type entry struct {
	mu    sync.Mutex
	owner string
	c     *session.Controller
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*entry)}
}

func (m *memory) Save(ctx context.Context, owner string, c *session.Controller) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[c.ID()] = &entry{owner: owner, c: c}
	return nil
}

func (m *memory) Do(ctx context.Context, owner, id string, fn func(c *session.Controller) error) error {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || e.owner != owner {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.c)
}

func (m *memory) Delete(ctx context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok || e.owner != owner {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}
