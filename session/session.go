// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/connectfour/logger"
	"github.com/wfunc/connectfour/network"
)

// SupersededNotice is sent to a connection right before it is replaced by a
// newer connection of the same user.
const SupersededNotice = "You have been disconnected because you connected from another device or tab."

// Session is one live connection of an authenticated user.
type Session struct {
	ID        string
	UserID    string
	Conn      network.Connection
	CreatedAt time.Time

	mutex      sync.RWMutex
	lastActive time.Time
}

func NewSession(id, userID string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		UserID:     userID,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
	}
}

// Touch records inbound activity.
func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) Send(msgID uint16, data []byte) error {
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager maps a user to at most one live session.
type Manager struct {
	sessions map[string]*Session // userID -> session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// Bind makes s the live session of its user. A previous session of the same
// user is sent SupersededNotice and closed before s takes its place; it is
// returned so the caller can log it.
func (m *Manager) Bind(s *Session) *Session {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	prior, exists := m.sessions[s.UserID]
	if exists && prior != s {
		if err := prior.Send(network.MsgTypeError, network.Encode(network.ErrorMessage{Message: SupersededNotice})); err != nil {
			logger.Log.Debugw("superseded notice not delivered", "user", s.UserID, "session", prior.ID, "error", err)
		}
		prior.Close()
	} else {
		prior = nil
	}

	m.sessions[s.UserID] = s
	return prior
}

// Unbind removes the user's mapping only if it still points at s. It
// reports whether s was the live session.
func (m *Manager) Unbind(s *Session) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if current, exists := m.sessions[s.UserID]; exists && current == s {
		delete(m.sessions, s.UserID)
		return true
	}
	return false
}

// Resolve returns the live session of a user.
func (m *Manager) Resolve(userID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	s, exists := m.sessions[userID]
	return s, exists
}

// IsCurrent reports whether s is the live session of its user.
func (m *Manager) IsCurrent(s *Session) bool {
	current, ok := m.Resolve(s.UserID)
	return ok && current == s
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// All returns a snapshot of the live sessions.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s)
	}
	return result
}

// CloseAll closes every live session. Used on shutdown.
func (m *Manager) CloseAll() {
	for _, s := range m.All() {
		s.Close()
	}
}
