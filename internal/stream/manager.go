// Package stream carries camera frames and coaching results over a
// WebSocket connection.
package stream

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Closer is the part of a connection the Manager needs.
type Closer interface {
	Close(code websocket.StatusCode, reason string) error
}

// Manager tracks the single active frame stream. The coach holds one session,
// so a new connection replaces the previous one.
type Manager struct {
	mu     sync.Mutex
	active Closer
	remote string
}

// NewManager creates a new stream manager.
func NewManager() *Manager {
	return &Manager{}
}

// Active returns the active connection, or nil.
func (m *Manager) Active() Closer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Register makes conn the active stream. A previous stream is closed in the
// background, since the close handshake waits on that peer.
func (m *Manager) Register(conn Closer, remote string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev := m.active; prev != nil && prev != conn {
		slog.Info("Frame stream replaced", "previous", m.remote, "remote", remote)
		go func() {
			_ = prev.Close(websocket.StatusPolicyViolation, "stream replaced")
		}()
	}
	m.active = conn
	m.remote = remote
	slog.Info("Frame stream registered", "remote", remote)
}

// Unregister clears conn if it is still the active stream.
func (m *Manager) Unregister(conn Closer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != conn {
		return
	}
	slog.Info("Frame stream unregistered", "remote", m.remote)
	m.active = nil
	m.remote = ""
}

// CloseAll terminates the active stream, if any.
func (m *Manager) CloseAll(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return
	}
	_ = m.active.Close(websocket.StatusGoingAway, reason)
	m.active = nil
	m.remote = ""
}
