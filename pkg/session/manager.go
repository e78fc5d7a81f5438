package session

import (
	"context"
	stderrors "errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/flowkeeper/pkg/kv"
)

// Manager keeps at most one open Session per project id on a shared store.
// Loading runs outside the manager lock, so a slow store only delays callers
// of the project being opened.
type Manager struct {
	store kv.Store
	opts  Options

	opening singleflight.Group

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions use store and opts.
func NewManager(store kv.Store, opts Options) *Manager {
	return &Manager{store: store, opts: opts, sessions: map[string]*Session{}}
}

// Get returns the open session for projectID, opening it on first use.
// Concurrent first calls for the same id share one Open.
func (m *Manager) Get(ctx context.Context, projectID string) (*Session, error) {
	if s, ok := m.lookup(projectID); ok {
		return s, nil
	}
	v, err, _ := m.opening.Do(projectID, func() (any, error) {
		if s, ok := m.lookup(projectID); ok {
			return s, nil
		}
		s, err := Open(ctx, m.store, projectID, m.opts)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.sessions[projectID] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *Manager) lookup(projectID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[projectID]
	return s, ok
}

// Release flushes and forgets the session for projectID.
func (m *Manager) Release(ctx context.Context, projectID string) error {
	m.mu.Lock()
	s, ok := m.sessions[projectID]
	delete(m.sessions, projectID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Close(ctx)
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll flushes and closes every session. All sessions are closed even
// when some flushes fail; the errors are joined.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[string]*Session{}
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
