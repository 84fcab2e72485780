package replication

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mydotey/artemis/pkg/model"
)

// worker drains one peer's unbounded FIFO queue, accumulating up to
// BatchMax events or BatchInterval elapsed (whichever first), then issuing
// one batched call per event kind. Retryable failures back off
// exponentially up to MaxRetries; terminal failures are logged and dropped.
type worker struct {
	peerID string
	client PeerClient
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	queue []model.ReplicationEvent
}

func newWorker(peerID string, client PeerClient, cfg Config, logger *slog.Logger) *worker {
	return &worker{peerID: peerID, client: client, cfg: cfg, logger: logger}
}

// enqueue appends an event to the tail of the queue without blocking.
func (w *worker) enqueue(evt model.ReplicationEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue = append(w.queue, evt)
	if n := len(w.queue); w.cfg.QueueWarnThreshold > 0 && n >= w.cfg.QueueWarnThreshold && n%w.cfg.QueueWarnThreshold == 0 {
		w.logger.Warn("replication queue watermark exceeded", "peer", w.peerID, "queue_len", n)
	}
}

func (w *worker) drain(max int) []model.ReplicationEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return nil
	}
	n := max
	if n > len(w.queue) {
		n = len(w.queue)
	}
	batch := w.queue[:n]
	w.queue = w.queue[n:]
	return batch
}

// run is the worker's main loop. It exits once ctx is cancelled, but first
// finishes flushing whatever was already accumulated.
func (w *worker) run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.BatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.flush(context.Background())
			return
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *worker) flush(ctx context.Context) {
	for {
		batch := w.drain(w.cfg.BatchMax)
		if len(batch) == 0 {
			return
		}
		w.sendBatch(ctx, batch)
	}
}

// sendBatch partitions the batch by event kind and issues one batched call
// per kind, retrying retryable failures with exponential backoff.
func (w *worker) sendBatch(ctx context.Context, batch []model.ReplicationEvent) {
	var registerInstances []*model.Instance
	var heartbeatKeys, unregisterKeys []model.InstanceKey
	nodeID := w.cfg.NodeID

	for _, evt := range batch {
		switch evt.Kind {
		case model.ReplicationRegister:
			registerInstances = append(registerInstances, evt.Instances...)
		case model.ReplicationHeartbeat:
			heartbeatKeys = append(heartbeatKeys, evt.Keys...)
		case model.ReplicationUnregister:
			unregisterKeys = append(unregisterKeys, evt.Keys...)
		}
	}

	if len(registerInstances) > 0 {
		w.sendWithRetry(ctx, model.BatchRegister, model.BatchRequest{OriginNodeID: nodeID, Instances: registerInstances})
	}
	if len(heartbeatKeys) > 0 {
		w.sendWithRetry(ctx, model.BatchHeartbeat, model.BatchRequest{OriginNodeID: nodeID, InstanceKeys: heartbeatKeys})
	}
	if len(unregisterKeys) > 0 {
		w.sendWithRetry(ctx, model.BatchUnregister, model.BatchRequest{OriginNodeID: nodeID, InstanceKeys: unregisterKeys})
	}
}

func (w *worker) sendWithRetry(ctx context.Context, kind model.BatchKind, req model.BatchRequest) {
	backoff := w.cfg.RetryInterval
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		err := w.client.ReplicateBatch(ctx, kind, req)
		if err == nil {
			return
		}

		cerr, ok := err.(*Error)
		classification := Retryable
		if ok {
			classification = cerr.Classification
		}
		if classification == Terminal {
			w.logger.Warn("replication batch dropped: terminal error", "peer", w.peerID, "kind", kind, "error", err)
			return
		}
		if attempt == w.cfg.MaxRetries {
			w.logger.Warn("replication batch dropped: retries exhausted", "peer", w.peerID, "kind", kind, "error", err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > w.cfg.MaxBackoff {
			backoff = w.cfg.MaxBackoff
		}
	}
}

// Error is a replication-specific error carrying the retry Classification
// the worker needs to decide whether to back off or drop.
type Error struct {
	Classification Classification
	Err            error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "replication error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
