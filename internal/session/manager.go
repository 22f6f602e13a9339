package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager creates workspaces on demand and tears them down after they have
// been idle for the TTL.
type Manager struct {
	mu    sync.Mutex
	items map[string]*Workspace
	ttl   time.Duration
	deps  Deps
	log   zerolog.Logger
}

// NewManager returns an empty manager.
func NewManager(deps Deps, ttl time.Duration) *Manager {
	return &Manager{
		items: make(map[string]*Workspace),
		ttl:   ttl,
		deps:  deps,
		log:   deps.Log,
	}
}

// Get returns the workspace for id.
func (m *Manager) Get(id string) (*Workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.items[id]
	return w, ok
}

// Create starts a new workspace under a fresh id.
func (m *Manager) Create() (*Workspace, error) {
	w, err := NewWorkspace(uuid.NewString(), m.deps)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.items[w.ID] = w
	n := len(m.items)
	m.mu.Unlock()
	m.log.Info().Str("session", w.ID).Int("sessions", n).Msg("[session] created")
	return w, nil
}

// Len returns the number of live workspaces.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Sweep tears down workspaces idle since before now-ttl. Workspaces with a
// merge in flight are kept. A swept workspace keeps its merge guard, so a
// caller still holding it gets ErrMergeInFlight instead of merging from a
// removed spool.
func (m *Manager) Sweep(now time.Time) int {
	var stale []*Workspace
	m.mu.Lock()
	for id, w := range m.items {
		if now.Sub(w.IdleSince()) < m.ttl || !w.guard.TryAcquire(1) {
			continue
		}
		stale = append(stale, w)
		delete(m.items, id)
	}
	m.mu.Unlock()

	for _, w := range stale {
		if err := w.Close(); err != nil {
			m.log.Warn().Err(err).Str("session", w.ID).Msg("[session] cleanup failed")
		}
		m.log.Info().Str("session", w.ID).Msg("[session] expired")
	}
	return len(stale)
}

// Run sweeps periodically until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	every := m.ttl / 4
	if every < time.Second {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			m.Sweep(now)
		}
	}
}

// Close tears down every workspace.
func (m *Manager) Close() {
	m.mu.Lock()
	items := m.items
	m.items = make(map[string]*Workspace)
	m.mu.Unlock()
	for _, w := range items {
		_ = w.Close()
	}
}
