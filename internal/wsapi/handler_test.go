package wsapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mydotey/artemis/pkg/model"
	"github.com/mydotey/artemis/pkg/registry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading message: %v", err)
	}
	var msg serverMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshaling server message: %v", err)
	}
	return msg
}

func TestSubscribeUnsubscribeProtocol(t *testing.T) {
	changes := registry.NewChangeManager()
	sessions := NewSessionManager()
	h := NewHandler(discardLogger(), sessions, changes)

	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	conn := dial(t, srv.URL)

	if err := conn.WriteJSON(clientMessage{Type: "subscribe", ServiceID: "svc-a"}); err != nil {
		t.Fatalf("writing subscribe: %v", err)
	}
	if got := readMessage(t, conn); got.Type != "subscribed" || got.ServiceID != "svc-a" {
		t.Fatalf("expected subscribed ack for svc-a, got %+v", got)
	}

	if err := conn.WriteJSON(clientMessage{Type: "ping"}); err != nil {
		t.Fatalf("writing ping: %v", err)
	}
	if got := readMessage(t, conn); got.Type != "pong" {
		t.Fatalf("expected pong, got %+v", got)
	}

	if err := conn.WriteJSON(clientMessage{Type: "unsubscribe", ServiceID: "svc-a"}); err != nil {
		t.Fatalf("writing unsubscribe: %v", err)
	}
	if got := readMessage(t, conn); got.Type != "unsubscribed" || got.ServiceID != "svc-a" {
		t.Fatalf("expected unsubscribed ack for svc-a, got %+v", got)
	}
}

func TestSubscribedSessionReceivesServiceChange(t *testing.T) {
	changes := registry.NewChangeManager()
	sessions := NewSessionManager()
	h := NewHandler(discardLogger(), sessions, changes)

	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	conn := dial(t, srv.URL)
	if err := conn.WriteJSON(clientMessage{Type: "subscribe", ServiceID: "svc-a"}); err != nil {
		t.Fatalf("writing subscribe: %v", err)
	}
	_ = readMessage(t, conn) // subscribed ack

	// pause before publishing; the subscription was registered before the ack.
	time.Sleep(20 * time.Millisecond)

	inst := &model.Instance{ServiceID: "svc-a", InstanceID: "i1", IP: "10.0.0.1", Port: 80, URL: "http://10.0.0.1:80"}
	changes.PublishRegister(inst, true)

	got := readMessage(t, conn)
	if got.Type != "service_change" || got.ServiceID != "svc-a" {
		t.Fatalf("expected a service_change frame for svc-a, got %+v", got)
	}
}

func TestUnknownMessageTypeGetsError(t *testing.T) {
	changes := registry.NewChangeManager()
	sessions := NewSessionManager()
	h := NewHandler(discardLogger(), sessions, changes)

	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	conn := dial(t, srv.URL)
	if err := conn.WriteJSON(clientMessage{Type: "bogus"}); err != nil {
		t.Fatalf("writing bogus message: %v", err)
	}
	if got := readMessage(t, conn); got.Type != "error" {
		t.Fatalf("expected an error frame for an unknown type, got %+v", got)
	}
}
