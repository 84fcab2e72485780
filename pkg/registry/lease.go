package registry

import (
	"context"
	"sync"
	"time"

	"github.com/mydotey/artemis/pkg/model"
)

// LeaseManager is the concurrent InstanceKey -> Lease table plus the
// background eviction loop. Renewal is a lock-free atomic write on the
// Lease itself (model.Lease), so Renew/IsValid never block.
type LeaseManager struct {
	ttl    time.Duration
	leases sync.Map // model.InstanceKey -> *model.Lease
	nowFn  func() time.Time
}

// NewLeaseManager creates a LeaseManager with the given TTL.
func NewLeaseManager(ttl time.Duration) *LeaseManager {
	return &LeaseManager{ttl: ttl, nowFn: time.Now}
}

// Create inserts a fresh lease for key with renewal_time = now.
func (m *LeaseManager) Create(key model.InstanceKey) *model.Lease {
	l := model.NewLease(key, m.ttl, m.nowFn())
	m.leases.Store(key, l)
	return l
}

// Renew sets renewal_time = now for an existing lease. Reports false if no
// lease exists for key.
func (m *LeaseManager) Renew(key model.InstanceKey) bool {
	v, ok := m.leases.Load(key)
	if !ok {
		return false
	}
	v.(*model.Lease).Renew(m.nowFn())
	return true
}

// CreateOrRenew renews an existing lease, or creates one if absent.
func (m *LeaseManager) CreateOrRenew(key model.InstanceKey) *model.Lease {
	if v, ok := m.leases.Load(key); ok {
		l := v.(*model.Lease)
		l.Renew(m.nowFn())
		return l
	}
	return m.Create(key)
}

// Remove deletes the lease for key, returning it if present.
func (m *LeaseManager) Remove(key model.InstanceKey) (*model.Lease, bool) {
	v, ok := m.leases.LoadAndDelete(key)
	if !ok {
		return nil, false
	}
	return v.(*model.Lease), true
}

// IsValid reports whether a non-expired lease exists for key.
func (m *LeaseManager) IsValid(key model.InstanceKey) bool {
	v, ok := m.leases.Load(key)
	if !ok {
		return false
	}
	return !v.(*model.Lease).IsExpired(m.nowFn())
}

// ExpiredKeys returns a snapshot of keys whose leases are currently expired.
func (m *LeaseManager) ExpiredKeys() []model.InstanceKey {
	now := m.nowFn()
	var out []model.InstanceKey
	m.leases.Range(func(k, v any) bool {
		if v.(*model.Lease).IsExpired(now) {
			out = append(out, k.(model.InstanceKey))
		}
		return true
	})
	return out
}

// StartEviction runs a recurring task that scans for expired leases every
// interval, removing each and invoking onEvict exactly once per eviction.
// It returns when ctx is cancelled, finishing its current tick first.
func (m *LeaseManager) StartEviction(ctx context.Context, interval time.Duration, onEvict func(model.InstanceKey)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, key := range m.ExpiredKeys() {
				v, ok := m.leases.Load(key)
				if !ok {
					continue
				}
				lease := v.(*model.Lease)
				if !lease.IsExpired(m.nowFn()) {
					continue // renewed between scan and processing
				}
				if !lease.MarkEvicted(m.nowFn()) {
					continue // another pass already won this eviction
				}
				m.leases.Delete(key)
				onEvict(key)
			}
		}
	}
}
