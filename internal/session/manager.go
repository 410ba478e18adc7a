// Package session caches live games between checkpoints. Gameplay is
// write-heavy but low-value per write; the durable store only sees state at
// floor boundaries, terminal turns, disconnects and idle eviction, which
// bounds worst-case progress loss to one floor.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/deepfall/server/internal/game"
	"go.uber.org/zap"
)

// Store is the checkpoint sink.
type Store interface {
	SaveGame(ctx context.Context, gs *game.GameState) error
}

// Transport is the client connection bound to a session. The manager only
// needs identity (to ignore stale sockets) and Close (on eviction).
type Transport interface {
	Close() error
}

// Session is one live game binding.
type Session struct {
	Transport    Transport
	State        *game.GameState
	Paused       bool
	LastActivity time.Time
}

// Manager is the process-wide id -> session map.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	store         Store
	idleTimeout   time.Duration
	sweepInterval time.Duration
	log           *zap.Logger
	now           func() time.Time
}

func NewManager(store Store, idleTimeout, sweepInterval time.Duration, log *zap.Logger) *Manager {
	return &Manager{
		sessions:      make(map[string]*Session),
		store:         store,
		idleTimeout:   idleTimeout,
		sweepInterval: sweepInterval,
		log:           log,
		now:           time.Now,
	}
}

// Register binds a transport and state to a game id, replacing any existing
// session under that id (a reconnect displaces the stale socket).
func (m *Manager) Register(id string, tr Transport, gs *game.GameState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = &Session{
		Transport:    tr,
		State:        gs,
		LastActivity: m.now(),
	}
}

// Update refreshes the in-memory cache only. No persistence.
func (m *Manager) Update(id string, gs *game.GameState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.State = gs
	}
}

// Get returns the cached state for a game id, or nil.
func (m *Manager) Get(id string) *game.GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s.State
	}
	return nil
}

// Checkpoint writes the cached state to the durable store.
func (m *Manager) Checkpoint(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	var gs *game.GameState
	if ok {
		gs = s.State
	}
	m.mu.Unlock()
	if gs == nil {
		return nil
	}
	return m.store.SaveGame(ctx, gs)
}

// Activity marks the session as recently used for idle-eviction purposes.
func (m *Manager) Activity(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.LastActivity = m.now()
	}
}

// Pause exempts the session from idle eviction.
func (m *Manager) Pause(id string) {
	m.setPaused(id, true)
}

// Resume re-arms idle eviction.
func (m *Manager) Resume(id string) {
	m.setPaused(id, false)
}

func (m *Manager) setPaused(id string, v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.Paused = v
		s.LastActivity = m.now()
	}
}

// Unregister checkpoints and removes a session. When a transport is given,
// removal only happens if it still matches the stored one, so a socket that
// died after a reconnect cannot kill the fresh session.
func (m *Manager) Unregister(ctx context.Context, id string, tr Transport) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || (tr != nil && s.Transport != tr) {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, id)
	gs := s.State
	m.mu.Unlock()

	if err := m.store.SaveGame(ctx, gs); err != nil {
		m.log.Error("checkpoint on unregister failed", zap.String("game", id), zap.Error(err))
	}
}

// Run sweeps for idle sessions until the context ends. Paused sessions are
// never evicted; an unhealthy store does not keep a session in memory.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *Manager) sweep(ctx context.Context) {
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.Lock()
	var evicted []*Session
	var ids []string
	for id, s := range m.sessions {
		if !s.Paused && s.LastActivity.Before(cutoff) {
			evicted = append(evicted, s)
			ids = append(ids, id)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for i, s := range evicted {
		if err := m.store.SaveGame(ctx, s.State); err != nil {
			m.log.Error("checkpoint on eviction failed, evicting anyway",
				zap.String("game", ids[i]), zap.Error(err))
		}
		if s.Transport != nil {
			s.Transport.Close()
		}
		m.log.Info("idle session evicted", zap.String("game", ids[i]))
	}
}

// Drain checkpoints every cached session, closes its transport, and empties
// the map. Used on shutdown; hijacked websockets are not closed by the HTTP
// server, so the manager has to do it.
func (m *Manager) Drain(ctx context.Context) {
	m.mu.Lock()
	type entry struct {
		id string
		s  *Session
	}
	all := make([]entry, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, entry{id: id, s: s})
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, e := range all {
		if err := m.store.SaveGame(ctx, e.s.State); err != nil {
			m.log.Error("drain checkpoint failed", zap.String("game", e.id), zap.Error(err))
		}
		if e.s.Transport != nil {
			e.s.Transport.Close()
		}
	}
	if len(all) > 0 {
		m.log.Info("sessions drained", zap.Int("count", len(all)))
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// IsPaused reports the paused flag for a session.
func (m *Manager) IsPaused(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s.Paused
	}
	return false
}
