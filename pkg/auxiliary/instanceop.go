package auxiliary

import (
	"context"
	"fmt"
	"sync"

	"github.com/mydotey/artemis/pkg/model"
)

type serverKey struct {
	regionID string
	ip       string
}

// InstanceOperationManager holds the loaded set of instance-level and
// server-level (region_id+ip) pull-in/pull-out directives. Both live here
// since they gate the same ManagementFilter step and share a reload cadence.
type InstanceOperationManager struct {
	store *Store

	mu        sync.RWMutex
	instances map[model.InstanceKey]model.InstanceOperationRecord
	servers   map[serverKey]model.ServerOperationRecord
}

func NewInstanceOperationManager(store *Store) *InstanceOperationManager {
	return &InstanceOperationManager{
		store:     store,
		instances: make(map[model.InstanceKey]model.InstanceOperationRecord),
		servers:   make(map[serverKey]model.ServerOperationRecord),
	}
}

func (m *InstanceOperationManager) Reload(ctx context.Context) error {
	instRecs, err := m.store.LoadInstanceOperations(ctx)
	if err != nil {
		return fmt.Errorf("loading instance operations: %w", err)
	}
	srvRecs, err := m.store.LoadServerOperations(ctx)
	if err != nil {
		return fmt.Errorf("loading server operations: %w", err)
	}

	nextInst := make(map[model.InstanceKey]model.InstanceOperationRecord, len(instRecs))
	for _, r := range instRecs {
		nextInst[r.Key] = r
	}
	nextSrv := make(map[serverKey]model.ServerOperationRecord, len(srvRecs))
	for _, r := range srvRecs {
		nextSrv[serverKey{r.RegionID, r.IP}] = r
	}

	m.mu.Lock()
	m.instances = nextInst
	m.servers = nextSrv
	m.mu.Unlock()
	return nil
}

// IsInstancePulledOut implements part of discovery.PullOutLookup.
func (m *InstanceOperationManager) IsInstancePulledOut(key model.InstanceKey) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.instances[key]
	return ok && r.Operation == model.OperationPullOut
}

// IsServerPulledOut implements part of discovery.PullOutLookup.
func (m *InstanceOperationManager) IsServerPulledOut(regionID, ip string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.servers[serverKey{regionID, ip}]
	return ok && r.Operation == model.OperationPullOut
}

func (m *InstanceOperationManager) GetInstanceOp(key model.InstanceKey) (model.InstanceOperationRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.instances[key]
	return r, ok
}

func (m *InstanceOperationManager) PutInstanceOp(ctx context.Context, r model.InstanceOperationRecord) error {
	if err := m.store.UpsertInstanceOperation(ctx, r); err != nil {
		return err
	}
	m.mu.Lock()
	m.instances[r.Key] = r
	m.mu.Unlock()
	return nil
}

func (m *InstanceOperationManager) DeleteInstanceOp(ctx context.Context, key model.InstanceKey) error {
	if err := m.store.DeleteInstanceOperation(ctx, key); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.instances, key)
	m.mu.Unlock()
	return nil
}

func (m *InstanceOperationManager) PutServerOp(ctx context.Context, r model.ServerOperationRecord) error {
	if err := m.store.UpsertServerOperation(ctx, r); err != nil {
		return err
	}
	m.mu.Lock()
	m.servers[serverKey{r.RegionID, r.IP}] = r
	m.mu.Unlock()
	return nil
}

func (m *InstanceOperationManager) DeleteServerOp(ctx context.Context, regionID, ip string) error {
	if err := m.store.DeleteServerOperation(ctx, regionID, ip); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.servers, serverKey{regionID, ip})
	m.mu.Unlock()
	return nil
}
