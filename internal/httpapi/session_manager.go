package httpapi

import (
	"sync"

	"go.uber.org/zap"

	"github.com/agentspine/spine/internal/llm"
	"github.com/agentspine/spine/internal/session"
)

// SessionManager holds every live session the Control Plane has created,
// keyed by session id. It owns nothing about session semantics — it is
// just the registry a stateless HTTP handler needs to find the *Session
// an incoming request names.
type SessionManager struct {
	client         *llm.Client
	env            interface{}
	logger         *zap.Logger
	defaultProfile *session.Profile

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewSessionManager(client *llm.Client, env interface{}, defaultProfile *session.Profile, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		client:         client,
		env:            env,
		defaultProfile: defaultProfile,
		logger:         logger,
		sessions:       make(map[string]*session.Session),
	}
}

// Create starts a new session using profile, or the manager's default
// profile if nil, and registers it for lookup by Get.
func (m *SessionManager) Create(profile *session.Profile) *session.Session {
	if profile == nil {
		profile = m.defaultProfile
	}
	s := session.NewSession(session.NewSessionOptions{
		Profile: profile,
		Client:  m.client,
		Env:     m.env,
		Logger:  m.logger,
	})

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *SessionManager) Get(id string) (*session.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove drops a session from the registry — callers should already
// have called Session.Close so it stops accepting work.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
