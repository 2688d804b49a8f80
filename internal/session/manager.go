package session

import (
	"context"
	"sync"
)

// Manager enforces at most one active session per user.
type Manager struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a manager whose sessions share deps.
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps.withDefaults(),
		sessions: make(map[string]*Session),
	}
}

// Start begins a recording for userID. It fails with ErrSessionAlreadyActive
// while that user's previous session has not been saved or discarded.
func (m *Manager) Start(ctx context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[userID]; ok {
		return nil, ErrSessionAlreadyActive
	}

	deps := m.deps
	deps.Logger = deps.Logger.With("user", userID)

	s := New(deps)
	s.onConsumed = func() { m.forget(userID, s) }

	if err := s.Start(ctx); err != nil {
		return nil, err
	}

	m.sessions[userID] = s

	return s, nil
}

// Get returns the user's active session.
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]

	return s, ok
}

// Discard abandons the user's active session, if any.
func (m *Manager) Discard(ctx context.Context, userID string) {
	s, ok := m.Get(userID)
	if !ok {
		return
	}

	s.Discard(ctx)
}

// Shutdown discards every active session.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	active := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		active = append(active, s)
	}
	m.mu.Unlock()

	for _, s := range active {
		s.Discard(ctx)
	}
}

func (m *Manager) forget(userID string, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessions[userID] == s {
		delete(m.sessions, userID)
	}
}
