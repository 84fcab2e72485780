package auxiliary

import (
	"context"
	"fmt"
	"sync"

	"github.com/mydotey/artemis/pkg/model"
)

// CanaryManager holds the loaded set of per-service canary configs in
// memory, satisfying discovery.CanaryLookup. A failed initial load is
// non-fatal: the manager simply starts empty and canary gating is a no-op
// until the next successful Reload.
type CanaryManager struct {
	store *Store

	mu      sync.RWMutex
	configs map[string]model.CanaryConfig
}

func NewCanaryManager(store *Store) *CanaryManager {
	return &CanaryManager{store: store, configs: make(map[string]model.CanaryConfig)}
}

// Reload replaces the in-memory set with what's currently persisted.
func (m *CanaryManager) Reload(ctx context.Context) error {
	configs, err := m.store.LoadCanaryConfigs(ctx)
	if err != nil {
		return fmt.Errorf("loading canary configs: %w", err)
	}
	next := make(map[string]model.CanaryConfig, len(configs))
	for _, c := range configs {
		next[c.ServiceID] = c
	}
	m.mu.Lock()
	m.configs = next
	m.mu.Unlock()
	return nil
}

// CanaryConfig implements discovery.CanaryLookup.
func (m *CanaryManager) CanaryConfig(serviceID string) (model.CanaryConfig, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.configs[serviceID]
	return c, ok
}

// Get returns the current config for management reads.
func (m *CanaryManager) Get(serviceID string) (model.CanaryConfig, bool) {
	return m.CanaryConfig(serviceID)
}

// Put persists and applies a canary config.
func (m *CanaryManager) Put(ctx context.Context, c model.CanaryConfig) error {
	if err := m.store.UpsertCanaryConfig(ctx, c); err != nil {
		return err
	}
	m.mu.Lock()
	m.configs[c.ServiceID] = c
	m.mu.Unlock()
	return nil
}

// Delete removes a canary config.
func (m *CanaryManager) Delete(ctx context.Context, serviceID string) error {
	if err := m.store.DeleteCanaryConfig(ctx, serviceID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.configs, serviceID)
	m.mu.Unlock()
	return nil
}
