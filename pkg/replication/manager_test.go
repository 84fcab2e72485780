package replication

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mydotey/artemis/pkg/model"
)

type fakePeerClient struct {
	mu           sync.Mutex
	failuresLeft int
	received     []model.BatchRequest
}

func (f *fakePeerClient) ReplicateBatch(_ context.Context, _ model.BatchKind, req model.BatchRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return &Error{Classification: Retryable}
	}
	f.received = append(f.received, req)
	return nil
}

func (f *fakePeerClient) SyncFullData(context.Context, string) (*model.SyncFullDataResponse, error) {
	return &model.SyncFullDataResponse{}, nil
}

func (f *fakePeerClient) ServicesDelta(context.Context, int64) (*model.ServicesDeltaResponse, error) {
	return &model.ServicesDeltaResponse{}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestRetryableFailureEventuallyDelivers: a peer returns a
// retryable error for the first 2 attempts and succeeds on the 3rd; all
// instances eventually appear at the peer with no duplicates.
func TestRetryableFailureEventuallyDelivers(t *testing.T) {
	cfg := DefaultConfig("local-node")
	cfg.BatchMax = 1000
	cfg.BatchInterval = 10 * time.Millisecond
	cfg.RetryInterval = 5 * time.Millisecond
	cfg.MaxRetries = 5

	mgr := NewManager(cfg, discardLogger())
	peer := &fakePeerClient{failuresLeft: 2}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.AddPeer(ctx, "peer-1", peer)

	instances := make([]*model.Instance, 0, 100)
	for i := 0; i < 100; i++ {
		instances = append(instances, &model.Instance{ServiceID: "A", InstanceID: "i", IP: "1.1.1.1", Port: 80, URL: "http://x"})
	}
	mgr.EnqueueRegister(instances)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		peer.mu.Lock()
		got := len(peer.received)
		peer.mu.Unlock()
		if got == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	peer.mu.Lock()
	defer peer.mu.Unlock()
	if len(peer.received) != 1 {
		t.Fatalf("expected exactly one successful batch delivery, got %d", len(peer.received))
	}
	if len(peer.received[0].Instances) != 100 {
		t.Fatalf("expected all 100 instances in the single delivered batch, got %d", len(peer.received[0].Instances))
	}
}

func TestSelfReplicationGuard(t *testing.T) {
	mgr := NewManager(DefaultConfig("node-a"), discardLogger())
	if mgr.AcceptFromPeer("node-a") {
		t.Fatalf("expected events originated by this node to be rejected")
	}
	if !mgr.AcceptFromPeer("node-b") {
		t.Fatalf("expected events from another node to be accepted")
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := map[int]Classification{
		429: Retryable,
		503: Retryable,
		400: Terminal,
		500: Terminal,
	}
	for status, want := range cases {
		if got := ClassifyStatus(status); got != want {
			t.Errorf("ClassifyStatus(%d) = %v, want %v", status, got, want)
		}
	}
}
