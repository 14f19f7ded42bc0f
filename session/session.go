// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/strangeindustries/scrumpoker/network"
	"github.com/strangeindustries/scrumpoker/room"
)

// Session is one live connection. Its ID doubles as the participant ID in
// every room the connection joins.
type Session struct {
	ID         room.ParticipantID
	Conn       network.Connection
	CreatedAt  time.Time
	lastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id room.ParticipantID, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
	}
}

// Touch records inbound activity.
func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastActive = time.Now()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) Send(data []byte) error {
	return s.Conn.Send(data)
}

func (s *Session) GetID() room.ParticipantID {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[room.ParticipantID]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[room.ParticipantID]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID room.ParticipantID) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID room.ParticipantID) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// CloseIdle closes every session whose last inbound activity is before
// cutoff and returns how many it closed.
func (m *Manager) CloseIdle(cutoff time.Time) int {
	m.mutex.RLock()
	idle := make([]*Session, 0)
	for _, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
		}
	}
	m.mutex.RUnlock()

	for _, s := range idle {
		_ = s.Close()
	}
	return len(idle)
}

// CloseAll closes every connection. Their read loops then run the normal
// disconnect path.
func (m *Manager) CloseAll() {
	m.mutex.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mutex.RUnlock()

	for _, s := range sessions {
		_ = s.Close()
	}
}
