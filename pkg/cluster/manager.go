// Package cluster tracks the set of known peer registry nodes, their
// heartbeat liveness, and the background task that marks stale peers down.
package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/mydotey/artemis/pkg/model"
)

// Manager maintains node_id -> ClusterNode and the liveness state machine:
// initial state on register is Up; a heartbeat from a Down node returns it
// to Up; a background task marks nodes whose last heartbeat exceeds
// heartbeat_timeout as Down.
type Manager struct {
	mu    sync.RWMutex
	nodes map[string]*model.ClusterNode
	nowFn func() time.Time
}

// NewManager creates an empty cluster Manager.
func NewManager() *Manager {
	return &Manager{nodes: make(map[string]*model.ClusterNode), nowFn: time.Now}
}

// RegisterNode adds or replaces a node, starting it in the Up state.
func (m *Manager) RegisterNode(nodeID, address string, port int) *model.ClusterNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	node := &model.ClusterNode{
		NodeID:        nodeID,
		Address:       address,
		Port:          port,
		Status:        model.NodeUp,
		LastHeartbeat: m.nowFn(),
	}
	m.nodes[nodeID] = node
	return node
}

// UpdateHeartbeat records a heartbeat for nodeID, returning it to Up if it
// was Down. Reports false if nodeID is unknown.
func (m *Manager) UpdateHeartbeat(nodeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.nodes[nodeID]
	if !ok {
		return false
	}
	node.LastHeartbeat = m.nowFn()
	node.Status = model.NodeUp
	return true
}

// GetHealthyNodes returns every node currently in the Up state.
func (m *Manager) GetHealthyNodes() []*model.ClusterNode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.ClusterNode
	for _, n := range m.nodes {
		if n.Status == model.NodeUp {
			out = append(out, n)
		}
	}
	return out
}

// ListNodes returns every known node regardless of status.
func (m *Manager) ListNodes() []*model.ClusterNode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.ClusterNode, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n)
	}
	return out
}

// CheckExpiredNodes marks Down every node whose last heartbeat exceeds
// timeout, returning the affected node ids.
func (m *Manager) CheckExpiredNodes(timeout time.Duration) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFn()
	var expired []string
	for id, n := range m.nodes {
		if n.Status != model.NodeDown && now.Sub(n.LastHeartbeat) > timeout {
			n.Status = model.NodeDown
			expired = append(expired, id)
		}
	}
	return expired
}

// StartHealthCheck runs CheckExpiredNodes every checkInterval until ctx is
// cancelled.
func (m *Manager) StartHealthCheck(ctx context.Context, checkInterval, heartbeatTimeout time.Duration) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckExpiredNodes(heartbeatTimeout)
		}
	}
}
