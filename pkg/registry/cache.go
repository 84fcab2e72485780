package registry

import (
	"sync"
	"time"

	"github.com/mydotey/artemis/pkg/model"
)

// Cache is the versioned, per-service read-side view. Entries are replaced
// atomically; Put assigns version prev+1 while an entry exists. Invalidate
// drops the entry, so the next Put starts again at version 0: versions are
// not monotonic across an invalidation.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*model.VersionedSnapshot
	nowFn   func() time.Time
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*model.VersionedSnapshot), nowFn: time.Now}
}

// Get returns the current snapshot for service_id, if any.
func (c *Cache) Get(serviceID string) (*model.VersionedSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.entries[serviceID]
	return snap, ok
}

// Put replaces the snapshot for service_id, assigning version = prev+1 (0 if
// absent) and timestamp_ms = now.
func (c *Cache) Put(serviceID string, instances []*model.Instance) *model.VersionedSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	var version uint64
	if prev, ok := c.entries[serviceID]; ok {
		version = prev.Version + 1
	}
	snap := &model.VersionedSnapshot{
		ServiceID:   serviceID,
		Instances:   instances,
		Version:     version,
		TimestampMs: c.nowFn().UnixMilli(),
	}
	c.entries[serviceID] = snap
	return snap
}

// Invalidate drops the entry for service_id so the next read rebuilds it.
func (c *Cache) Invalidate(serviceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, serviceID)
}

// DeltaSince returns every snapshot whose timestamp_ms exceeds sinceTsMs,
// along with the current wall-clock timestamp the caller should remember
// for its next poll.
func (c *Cache) DeltaSince(sinceTsMs int64) (services []*model.Service, currentTsMs int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	currentTsMs = c.nowFn().UnixMilli()
	for _, snap := range c.entries {
		if snap.TimestampMs > sinceTsMs {
			services = append(services, snap.ToService())
		}
	}
	return services, currentTsMs
}

// AllSnapshots returns every cached snapshot as a Service, used to serve
// get_services without per-entry rebuild.
func (c *Cache) AllSnapshots() []*model.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Service, 0, len(c.entries))
	for _, snap := range c.entries {
		out = append(out, snap.ToService())
	}
	return out
}
