package wsapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mydotey/artemis/pkg/model"
	"github.com/mydotey/artemis/pkg/registry"
)

// ChangeSource is the subset of *registry.ChangeManager the WebSocket
// handler depends on, so it can be faked in tests.
type ChangeSource interface {
	Subscribe(serviceID string) *registry.Subscription
}

// Handler upgrades GET /ws connections and runs the subscribe/unsubscribe
// session protocol against a ChangeSource.
type Handler struct {
	logger   *slog.Logger
	sessions *SessionManager
	changes  ChangeSource
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler backed by changes and tracking sessions in
// sessions.
func NewHandler(logger *slog.Logger, sessions *SessionManager, changes ChangeSource) *Handler {
	return &Handler{
		logger:   logger,
		sessions: sessions,
		changes:  changes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Routes mounts GET /ws.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleUpgrade)
	return r
}

func (h *Handler) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := newSession(conn)
	h.sessions.register(sess)

	subs := &subscriptionSet{subs: make(map[string]trackedSubscription)}
	defer func() {
		subs.closeAll()
		h.sessions.unregister(sess)
		_ = conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			_ = sess.send(serverMessage{Type: "error", Message: "invalid message"})
			continue
		}

		switch msg.Type {
		case "subscribe":
			sess.subscribe(msg.ServiceID)
			subs.add(msg.ServiceID, h.changes.Subscribe(msg.ServiceID), func(serviceID string, change model.InstanceChange) {
				_ = sess.send(serverMessage{Type: "service_change", ServiceID: serviceID, Changes: []model.InstanceChange{change}})
			})
			_ = sess.send(serverMessage{Type: "subscribed", ServiceID: msg.ServiceID})
		case "unsubscribe":
			sess.unsubscribe(msg.ServiceID)
			subs.remove(msg.ServiceID)
			_ = sess.send(serverMessage{Type: "unsubscribed", ServiceID: msg.ServiceID})
		case "ping":
			_ = sess.send(serverMessage{Type: "pong"})
		default:
			_ = sess.send(serverMessage{Type: "error", Message: "unknown message type"})
		}
	}
}

// trackedSubscription pairs a registry.Subscription with the stop channel
// that tells its forwarding goroutine to exit. The Subscription's channel
// is never closed by the publisher side, so the goroutine can't rely on
// ranging over it to termiate.
type trackedSubscription struct {
	sub  *registry.Subscription
	stop chan struct{}
}

// subscriptionSet owns the registry.Subscription and forwarding goroutine
// for each service_id one session currently subscribes to.
type subscriptionSet struct {
	mu   sync.Mutex
	subs map[string]trackedSubscription
}

func (s *subscriptionSet) add(serviceID string, sub *registry.Subscription, forward func(string, model.InstanceChange)) {
	s.mu.Lock()
	if existing, ok := s.subs[serviceID]; ok {
		close(existing.stop)
		existing.sub.Close()
	}
	stop := make(chan struct{})
	s.subs[serviceID] = trackedSubscription{sub: sub, stop: stop}
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-stop:
				return
			case change := <-sub.C():
				forward(serviceID, change)
			}
		}
	}()
}

func (s *subscriptionSet) remove(serviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ts, ok := s.subs[serviceID]; ok {
		close(ts.stop)
		ts.sub.Close()
		delete(s.subs, serviceID)
	}
}

func (s *subscriptionSet) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ts := range s.subs {
		close(ts.stop)
		ts.sub.Close()
		delete(s.subs, id)
	}
}
