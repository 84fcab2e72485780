package replication

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mydotey/artemis/pkg/model"
)

// Config holds the batching and retry parameters shared by every peer's
// worker.
type Config struct {
	NodeID             string
	BatchMax           int
	BatchInterval      time.Duration
	RetryInterval      time.Duration
	MaxBackoff         time.Duration
	MaxRetries         int
	QueueWarnThreshold int
}

// DefaultConfig returns batching and retry defaults in the same order of
// magnitude as the registry's lease TTL and eviction interval.
func DefaultConfig(nodeID string) Config {
	return Config{
		NodeID:             nodeID,
		BatchMax:           100,
		BatchInterval:      200 * time.Millisecond,
		RetryInterval:      500 * time.Millisecond,
		MaxBackoff:         30 * time.Second,
		MaxRetries:         5,
		QueueWarnThreshold: 10000,
	}
}

// PeerClient is the HTTP surface the worker needs against one peer.
type PeerClient interface {
	ReplicateBatch(ctx context.Context, kind model.BatchKind, req model.BatchRequest) error
	SyncFullData(ctx context.Context, nodeID string) (*model.SyncFullDataResponse, error)
	ServicesDelta(ctx context.Context, sinceTsMs int64) (*model.ServicesDeltaResponse, error)
}

// Manager owns one unbounded FIFO queue and worker per peer. Enqueue is
// non-blocking; events carry the local node id so a node can ignore events
// it originated (self-replication guard).
type Manager struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.RWMutex
	workers map[string]*worker
}

// NewManager creates a replication Manager.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger, workers: make(map[string]*worker)}
}

// AddPeer registers a peer and starts its worker goroutine. ctx governs the
// worker's lifetime; cancelling it causes the worker to drain and stop.
func (m *Manager) AddPeer(ctx context.Context, peerID string, client PeerClient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.workers[peerID]; exists {
		return
	}
	w := newWorker(peerID, client, m.cfg, m.logger)
	m.workers[peerID] = w
	go w.run(ctx)
}

// RemovePeer stops tracking a peer. The worker goroutine exits when its
// context is cancelled by the caller of AddPeer.
func (m *Manager) RemovePeer(peerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workers, peerID)
}

func (m *Manager) peers() []*worker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*worker, 0, len(m.workers))
	for _, w := range m.workers {
		out = append(out, w)
	}
	return out
}

// EnqueueRegister fans a register event out to every peer's queue.
func (m *Manager) EnqueueRegister(instances []*model.Instance) {
	evt := model.ReplicationEvent{Kind: model.ReplicationRegister, Instances: instances, OriginNodeID: m.cfg.NodeID, CreatedAt: time.Now()}
	for _, w := range m.peers() {
		w.enqueue(evt)
	}
}

// EnqueueHeartbeat fans a heartbeat event out to every peer's queue.
func (m *Manager) EnqueueHeartbeat(keys []model.InstanceKey) {
	evt := model.ReplicationEvent{Kind: model.ReplicationHeartbeat, Keys: keys, OriginNodeID: m.cfg.NodeID, CreatedAt: time.Now()}
	for _, w := range m.peers() {
		w.enqueue(evt)
	}
}

// EnqueueUnregister fans an unregister event out to every peer's queue.
func (m *Manager) EnqueueUnregister(keys []model.InstanceKey) {
	evt := model.ReplicationEvent{Kind: model.ReplicationUnregister, Keys: keys, OriginNodeID: m.cfg.NodeID, CreatedAt: time.Now()}
	for _, w := range m.peers() {
		w.enqueue(evt)
	}
}

// AcceptFromPeer applies the self-replication guard: events originated by
// this node are ignored when received back from a peer.
func (m *Manager) AcceptFromPeer(originNodeID string) bool {
	return originNodeID != m.cfg.NodeID
}
