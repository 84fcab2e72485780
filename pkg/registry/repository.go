// Package registry implements the authoritative in-memory data plane:
// the instance repository, lease manager, versioned cache, change
// broadcaster, rate limiter, and the orchestrating Service that ties a
// single register/heartbeat/unregister call across all of them.
package registry

import (
	"strings"
	"sync"

	"github.com/mydotey/artemis/pkg/model"
)

// Repository is the concurrent InstanceKey -> Instance table. It holds no
// global lock: a sync.Map gives per-entry consistency for register/remove,
// and iteration (used by list/snapshot) is allowed to observe a weakly
// consistent view of concurrent mutations.
type Repository struct {
	entries sync.Map // model.InstanceKey -> *model.Instance
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Register upserts inst by its key. inserted reports true if this was a fresh
// insert, false if it overwrote an existing entry.
func (r *Repository) Register(inst *model.Instance) (inserted bool) {
	key := inst.Key()
	_, existed := r.entries.Swap(key, inst)
	return !existed
}

// Get returns the instance for key, if present.
func (r *Repository) Get(key model.InstanceKey) (*model.Instance, bool) {
	v, ok := r.entries.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*model.Instance), true
}

// Remove deletes the instance for key, returning it if it existed.
func (r *Repository) Remove(key model.InstanceKey) (*model.Instance, bool) {
	v, ok := r.entries.LoadAndDelete(key)
	if !ok {
		return nil, false
	}
	return v.(*model.Instance), true
}

// ListByService returns all instances whose service_id matches, compared
// case-insensitively.
func (r *Repository) ListByService(serviceID string) []*model.Instance {
	want := strings.ToLower(serviceID)
	var out []*model.Instance
	r.entries.Range(func(k, v any) bool {
		if k.(model.InstanceKey).ServiceID == want {
			out = append(out, v.(*model.Instance))
		}
		return true
	})
	return out
}

// ListAll returns every instance currently registered.
func (r *Repository) ListAll() []*model.Instance {
	var out []*model.Instance
	r.entries.Range(func(_, v any) bool {
		out = append(out, v.(*model.Instance))
		return true
	})
	return out
}

// SnapshotServices groups every registered instance by service_id.
func (r *Repository) SnapshotServices() []*model.Service {
	byService := make(map[string]*model.Service)
	r.entries.Range(func(k, v any) bool {
		key := k.(model.InstanceKey)
		svc, ok := byService[key.ServiceID]
		if !ok {
			svc = &model.Service{ServiceID: v.(*model.Instance).ServiceID}
			byService[key.ServiceID] = svc
		}
		svc.Instances = append(svc.Instances, v.(*model.Instance))
		return true
	})
	out := make([]*model.Service, 0, len(byService))
	for _, svc := range byService {
		out = append(out, svc)
	}
	return out
}
