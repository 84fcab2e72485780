// Package wsapi implements the push-subscription layer: a WebSocket
// endpoint that lets callers subscribe to a service's change-broadcast
// stream instead of polling discovery.
package wsapi

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/google/uuid"
)

// serverMessage is any of the {type:"..."} frames the server sends. Only
// the fields relevant to a given type are populated.
type serverMessage struct {
	Type      string      `json:"type"`
	ServiceID string      `json:"service_id,omitempty"`
	Changes   interface{} `json:"changes,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// clientMessage is any of the {type:"..."} frames a client sends.
type clientMessage struct {
	Type      string `json:"type"`
	ServiceID string `json:"service_id"`
}

// session is one connected WebSocket client: its subscriptions and a send
// mutex serializing frames, since gorilla/websocket forbids concurrent
// writers on the same connection.
type session struct {
	id   string
	conn *websocket.Conn

	sendMu sync.Mutex

	mu            sync.Mutex
	subscriptions map[string]struct{}
}

func newSession(conn *websocket.Conn) *session {
	return &session{
		id:            uuid.NewString(),
		conn:          conn,
		subscriptions: make(map[string]struct{}),
	}
}

func (s *session) subscribe(serviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[serviceID] = struct{}{}
}

func (s *session) unsubscribe(serviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, serviceID)
}

func (s *session) isSubscribed(serviceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subscriptions[serviceID]
	return ok
}

func (s *session) subscribedServices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.subscriptions))
	for id := range s.subscriptions {
		out = append(out, id)
	}
	return out
}

// send serializes msg and writes it, holding sendMu for the duration since
// writes may be triggered concurrently by the read loop and by change
// broadcasts.
func (s *session) send(msg serverMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// SessionManager tracks every connected session by id. It does not deliver
// change events; each session forwards those for its own subscriptions.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewSessionManager creates an empty SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*session)}
}

func (m *SessionManager) register(s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.id] = s
}

func (m *SessionManager) unregister(s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s.id)
}

// SessionCount reports how many sessions are currently connected.
func (m *SessionManager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
