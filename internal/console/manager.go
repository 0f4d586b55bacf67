package console

import (
	"context"
	"sync"
)

// Manager holds the current session. Loading a new one closes the old one,
// the way reloading the page tears down its listeners and timers.
type Manager struct {
	deps Deps

	loadMu  sync.Mutex
	opts    Options
	mu      sync.RWMutex
	current *Console
}

// NewManager creates a manager without a session; call Load to start one.
func NewManager(deps Deps) *Manager {
	return &Manager{deps: deps}
}

// Load replaces the current session with a fresh one.
func (m *Manager) Load(ctx context.Context, opts Options) *Console {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	return m.loadLocked(ctx, opts)
}

// Redetect reloads the session with its last options unless it is already in
// native mode. It reports whether a reload happened. Called when a native host
// connects, so a host that arrives after startup is detected.
func (m *Manager) Redetect(ctx context.Context) bool {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	if c := m.Current(); c != nil && c.Mode() == ModeNative {
		return false
	}
	m.loadLocked(ctx, m.opts)
	return true
}

func (m *Manager) loadLocked(ctx context.Context, opts Options) *Console {
	m.mu.Lock()
	old := m.current
	m.current = nil
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}

	m.opts = opts
	c := Start(ctx, m.deps, opts)

	m.mu.Lock()
	m.current = c
	m.mu.Unlock()

	if m.deps.OnChange != nil {
		m.deps.OnChange()
	}
	return c
}

// Current returns the live session, or nil while none is loaded.
func (m *Manager) Current() *Console {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Close ends the current session.
func (m *Manager) Close() {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	m.mu.Lock()
	old := m.current
	m.current = nil
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
}
