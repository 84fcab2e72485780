package auxiliary

import (
	"context"
	"fmt"
	"sync"

	"github.com/mydotey/artemis/pkg/model"
)

type zoneKey struct {
	regionID string
	zoneID   string
}

// ZoneOperationManager holds the loaded set of zone-level pull-in/pull-out
// directives.
type ZoneOperationManager struct {
	store *Store

	mu   sync.RWMutex
	recs map[zoneKey]model.ZoneOperationRecord
}

func NewZoneOperationManager(store *Store) *ZoneOperationManager {
	return &ZoneOperationManager{store: store, recs: make(map[zoneKey]model.ZoneOperationRecord)}
}

func (m *ZoneOperationManager) Reload(ctx context.Context) error {
	recs, err := m.store.LoadZoneOperations(ctx)
	if err != nil {
		return fmt.Errorf("loading zone operations: %w", err)
	}
	next := make(map[zoneKey]model.ZoneOperationRecord, len(recs))
	for _, r := range recs {
		next[zoneKey{r.RegionID, r.ZoneID}] = r
	}
	m.mu.Lock()
	m.recs = next
	m.mu.Unlock()
	return nil
}

// IsPulledOut reports whether the zone currently has a pull-out directive.
func (m *ZoneOperationManager) IsPulledOut(regionID, zoneID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recs[zoneKey{regionID, zoneID}]
	return ok && r.Operation == model.OperationPullOut
}

func (m *ZoneOperationManager) Get(regionID, zoneID string) (model.ZoneOperationRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recs[zoneKey{regionID, zoneID}]
	return r, ok
}

func (m *ZoneOperationManager) Put(ctx context.Context, r model.ZoneOperationRecord) error {
	if err := m.store.UpsertZoneOperation(ctx, r); err != nil {
		return err
	}
	m.mu.Lock()
	m.recs[zoneKey{r.RegionID, r.ZoneID}] = r
	m.mu.Unlock()
	return nil
}

func (m *ZoneOperationManager) Delete(ctx context.Context, regionID, zoneID string) error {
	if err := m.store.DeleteZoneOperation(ctx, regionID, zoneID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.recs, zoneKey{regionID, zoneID})
	m.mu.Unlock()
	return nil
}
