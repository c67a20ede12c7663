package session

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Manager keys sessions by id. Shared components are created once and handed
// to every session; stateful components are created per session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     []Option
	settings settings
}

// NewManager creates a Manager whose sessions are built with opts.
func NewManager(opts ...Option) *Manager {
	st := newSettings(opts)
	shared := append(slices.Clone(opts),
		WithCatalog(st.catalog),
		WithValidator(st.validator),
		WithDetector(st.detector),
		WithAnalyzer(st.analyzer),
	)
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     shared,
		settings: st,
	}
}

// Create starts a new session for exercise.
func (m *Manager) Create(exercise string, skipCalibration bool) *Session {
	s := New(uuid.NewString(), exercise, skipCalibration, m.opts...)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, ErrSessionNotFound)
	}
	return s, nil
}

// Delete discards the session with id.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("delete %q: %w", id, ErrSessionNotFound)
	}
	delete(m.sessions, id)
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns a summary of every session, oldest first.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(all))
	for _, s := range all {
		out = append(out, s.Snapshot())
	}
	slices.SortFunc(out, func(a, b Summary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Exercises lists the names in the shared exercise catalogue.
func (m *Manager) Exercises() []string {
	return m.settings.catalog.Names()
}
