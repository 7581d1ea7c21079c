package session

import (
	"context"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matzehuels/upgraph/pkg/errors"
	"github.com/matzehuels/upgraph/pkg/store"
)

// DefaultMaxSessions bounds the sessions a Manager keeps in memory.
const DefaultMaxSessions = 256

// Manager owns the live sessions of a server. The least recently used
// session is dropped when the limit is reached; its snapshots stay in the
// store and are restored on the next Get.
type Manager struct {
	renderer Renderer
	store    store.Store
	logger   *log.Logger
	sessions *lru.Cache[string, *Session]
}

// NewManager creates a manager holding at most size sessions.
func NewManager(r Renderer, st store.Store, logger *log.Logger, size int) (*Manager, error) {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	sessions, err := lru.New[string, *Session](size)
	if err != nil {
		return nil, err
	}
	return &Manager{renderer: r, store: st, logger: logger, sessions: sessions}, nil
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	s := m.newSession()
	m.sessions.Add(s.ID, s)
	return s
}

// Get returns the session with id, restoring it from the store when it
// is not live. It fails with SESSION_NOT_FOUND for unknown ids.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if err := errors.ValidateSessionID(id); err != nil {
		return nil, err
	}
	if s, ok := m.sessions.Get(id); ok {
		return s, nil
	}
	if m.store != nil {
		snap, err := m.store.Latest(ctx, id)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "load session %s", id)
		}
		if snap != nil {
			s := m.newSession(WithID(id))
			s.Restore(snap)
			m.sessions.Add(id, s)
			return s, nil
		}
	}
	return nil, errors.New(errors.ErrCodeSessionNotFound, "session %s not found", id)
}

// Delete drops a session and its stored snapshots.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.sessions.Remove(id)
	if m.store != nil {
		return m.store.Delete(ctx, id)
	}
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.sessions.Len()
}

func (m *Manager) newSession(opts ...Option) *Session {
	base := []Option{WithLogger(m.logger)}
	if m.store != nil {
		base = append(base, WithStore(m.store))
	}
	return New(m.renderer, append(base, opts...)...)
}
