package registry

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mydotey/artemis/pkg/model"
)

func key(instanceID string) model.InstanceKey {
	return model.InstanceKey{RegionID: "us-east", ZoneID: "zone-a", ServiceID: "a", InstanceID: instanceID}
}

func TestLeaseManagerRenewNeverDecreasesRenewalTime(t *testing.T) {
	m := NewLeaseManager(time.Second)
	k := key("i1")
	m.Create(k)

	var last time.Time
	for i := 0; i < 5; i++ {
		m.Renew(k)
		v, _ := m.leases.Load(k)
		cur := v.(*model.Lease).RenewalTime()
		if cur.Before(last) {
			t.Fatalf("renewal_time decreased: %v before %v", cur, last)
		}
		last = cur
	}
}

func TestLeaseManagerRenewAbsentKeyFails(t *testing.T) {
	m := NewLeaseManager(time.Second)
	if m.Renew(key("missing")) {
		t.Fatalf("expected Renew of a never-created key to fail")
	}
}

func TestLeaseManagerIsValid(t *testing.T) {
	m := NewLeaseManager(50 * time.Millisecond)
	k := key("i1")
	m.Create(k)

	if !m.IsValid(k) {
		t.Fatalf("expected freshly created lease to be valid")
	}

	time.Sleep(100 * time.Millisecond)
	if m.IsValid(k) {
		t.Fatalf("expected expired lease to be invalid")
	}
}

func TestLeaseManagerStartEvictionSingleShot(t *testing.T) {
	m := NewLeaseManager(30 * time.Millisecond)
	k := key("i1")
	m.Create(k)

	var evictedCount int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go m.StartEviction(ctx, 10*time.Millisecond, func(got model.InstanceKey) {
		atomic.AddInt32(&evictedCount, 1)
		if got != k {
			t.Errorf("unexpected evicted key: %+v", got)
		}
	})

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&evictedCount) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := atomic.LoadInt32(&evictedCount); got != 1 {
		t.Fatalf("expected exactly one eviction callback, got %d", got)
	}
	if _, ok := m.leases.Load(k); ok {
		t.Fatalf("expected lease to be removed after eviction")
	}
}
