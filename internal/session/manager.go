package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager holds live sessions in memory. Sessions exist only between start
// and finish; the persisted PracticeResult is the only thing that outlives
// them, so finished sessions are evicted after a grace period.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	log      zerolog.Logger
}

// NewManager creates an empty session registry.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		log:      log.With().Str("component", "session_manager").Logger(),
	}
}

// Add registers a session.
func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Get returns a session by ID.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove drops a session from the registry.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// StartJanitor periodically evicts sessions that finished more than retain
// ago, and never-started sessions that outlived their duration plus retain.
// Call in a goroutine; stops when ctx is cancelled.
func (m *Manager) StartJanitor(ctx context.Context, every, retain time.Duration) {
	m.log.Info().Dur("every", every).Dur("retain", retain).Msg("Janitor started")

	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("Janitor stopped")
			return
		case <-t.C:
			m.sweep(retain)
		}
	}
}

func (m *Manager) sweep(retain time.Duration) {
	now := time.Now()
	cutoff := now.Add(-retain)

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.sessions {
		switch finished := s.FinishedAt(); {
		case !finished.IsZero() && finished.Before(cutoff):
			delete(m.sessions, id)
			m.log.Debug().Str("session_id", id.String()).Msg("Evicted finished session")
		case s.Abandoned(now, retain):
			delete(m.sessions, id)
			m.log.Debug().Str("session_id", id.String()).Msg("Evicted abandoned session")
		}
	}
}
