package session

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ppiankov/livecheck/internal/model"
)

// Manager is the registry of connected sessions keyed by client id
type Manager struct {
	deps   Deps
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewManager creates a session registry
func NewManager(deps Deps, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := model.DefaultConfig().Server
	if deps.Config.OutboxSize <= 0 {
		deps.Config.OutboxSize = def.OutboxSize
	}
	if deps.Config.MaxAudioBytes <= 0 {
		deps.Config.MaxAudioBytes = def.MaxAudioBytes
	}
	if deps.Config.PingInterval <= 0 {
		deps.Config.PingInterval = def.PingInterval
	}
	if deps.Config.PongTimeout <= deps.Config.PingInterval {
		deps.Config.PongTimeout = deps.Config.PingInterval + deps.Config.PingInterval/5
	}
	if deps.Config.WriteTimeout <= 0 {
		deps.Config.WriteTimeout = def.WriteTimeout
	}
	return &Manager{
		deps:     deps,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Serve runs a session for conn and blocks until it ends. A second
// connection with the same client id replaces the first one.
func (m *Manager) Serve(clientID string, conn *websocket.Conn) {
	s := newSession(clientID, conn, m.deps, m.logger)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	prev := m.sessions[clientID]
	m.sessions[clientID] = s
	m.mu.Unlock()

	if prev != nil {
		m.logger.Info("client reconnected, replacing session", zap.String("client_id", clientID))
		prev.Close()
		<-prev.Done()
	}

	m.logger.Info("session opened",
		zap.String("client_id", clientID),
		zap.String("remote_addr", conn.RemoteAddr().String()))

	s.run()

	m.mu.Lock()
	if m.sessions[clientID] == s {
		delete(m.sessions, clientID)
	}
	m.mu.Unlock()
}

// Get returns the live session of a client
func (m *Manager) Get(clientID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[clientID]
	return s, ok
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll closes every session and rejects new ones
func (m *Manager) CloseAll() {
	m.mu.Lock()
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	for _, s := range sessions {
		<-s.Done()
	}
}
