package reconcile

import (
	"context"
	"errors"
	"sync"
)

var ErrNoSession = errors.New("no active session")

// Manager keeps one shared session per academy. Every user of the academy
// attaches to it; the session closes when its last member leaves.
type Manager struct {
	cfg Config

	mu      sync.Mutex
	tenants map[string]*tenant
}

type tenant struct {
	session *Session
	// loaded is closed once the initial fetch has finished.
	loaded  chan struct{}
	members map[string]struct{}
	// pending counts Attach calls that have not yet joined or given up.
	pending int
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, tenants: make(map[string]*tenant)}
}

// Attach joins userID to the academy's session, opening it and running the
// initial fetch if none is active. admit runs against the loaded session and
// can refuse the user; a refused user never becomes a member.
func (m *Manager) Attach(ctx context.Context, academyID, userID string, admit func(*Session) error) (*Session, error) {
	m.mu.Lock()
	t, ok := m.tenants[academyID]
	if !ok {
		t = &tenant{
			session: NewSession(m.cfg, academyID),
			loaded:  make(chan struct{}),
			members: make(map[string]struct{}),
		}
		m.tenants[academyID] = t
	}
	t.pending++
	m.mu.Unlock()

	if !ok {
		// The fetch outlives a cancelled caller because other users may be waiting on it.
		t.session.FetchAll(context.WithoutCancel(ctx))
		close(t.loaded)
		m.cfg.logger().Info("session opened", "academy_id", academyID, "session_id", t.session.ID,
			"backend_configured", m.cfg.BackendConfigured)
	}

	select {
	case <-t.loaded:
	case <-ctx.Done():
		m.release(academyID, t)
		return nil, ctx.Err()
	}

	if admit != nil {
		if err := admit(t.session); err != nil {
			m.release(academyID, t)
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t.pending--
	if m.tenants[academyID] != t || !t.session.Alive() {
		return nil, ErrNoSession
	}
	t.members[userID] = struct{}{}
	return t.session, nil
}

// release drops a pending attach and closes the session if nobody is left.
func (m *Manager) release(academyID string, t *tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.pending--
	m.closeIdle(academyID, t)
}

func (m *Manager) closeIdle(academyID string, t *tenant) {
	if len(t.members) > 0 || t.pending > 0 || m.tenants[academyID] != t {
		return
	}
	t.session.Close()
	delete(m.tenants, academyID)
	m.cfg.logger().Info("session closed", "academy_id", academyID, "session_id", t.session.ID)
}

// Get returns the session with the given id if it is still the academy's
// active one and userID is a member of it.
func (m *Manager) Get(academyID, sessionID, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[academyID]
	if !ok || t.session.ID != sessionID || !t.session.Alive() {
		return nil, ErrNoSession
	}
	if _, member := t.members[userID]; !member {
		return nil, ErrNoSession
	}
	return t.session, nil
}

// Leave removes userID from the session. The last member to leave closes it.
func (m *Manager) Leave(academyID, sessionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[academyID]
	if !ok || t.session.ID != sessionID {
		return ErrNoSession
	}
	if _, member := t.members[userID]; !member {
		return ErrNoSession
	}
	delete(t.members, userID)
	m.closeIdle(academyID, t)
	return nil
}

// Members returns the number of users attached to the academy's session.
func (m *Manager) Members(academyID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tenants[academyID]; ok {
		return len(t.members)
	}
	return 0
}

// CloseAll ends every session, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.tenants {
		t.session.Close()
		delete(m.tenants, id)
	}
}

// Active returns the number of open sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tenants)
}
