package mcp

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Session holds per-connection adapter state. The active project set here
// becomes the default scope for save, search, and list calls on the same
// connection. Nothing in a Session survives process exit.
type Session struct {
	id        string
	createdAt time.Time

	mu             sync.RWMutex
	activeProject  string
	lastActivityAt time.Time
}

func newSession() *Session {
	now := time.Now()
	return &Session{
		id:             uuid.New().String(),
		createdAt:      now,
		lastActivityAt: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// ActiveProject returns the session's active project, or "" when unset.
func (s *Session) ActiveProject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeProject
}

// SetActiveProject switches the session to the given project and returns the
// previous value. Concurrent setters follow last-writer-wins; individual
// reads and writes are atomic but no ordering is promised across tool calls.
func (s *Session) SetActiveProject(project string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.activeProject
	s.activeProject = project
	s.lastActivityAt = time.Now()
	return previous
}

// sessionStore maps SDK connections to adapter sessions. Stdio serves a
// single connection per process, but keying by connection keeps state
// correct if the server is ever run over a multi-session transport.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[*mcp.ServerSession]*Session
	fallback *Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[*mcp.ServerSession]*Session)}
}

// get returns the session for the given connection, creating it on first
// use. A nil connection maps to a shared fallback session so handlers can be
// called directly.
func (st *sessionStore) get(conn *mcp.ServerSession) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if conn == nil {
		if st.fallback == nil {
			st.fallback = newSession()
		}
		return st.fallback
	}

	s, ok := st.sessions[conn]
	if !ok {
		s = newSession()
		st.sessions[conn] = s
	}
	return s
}
