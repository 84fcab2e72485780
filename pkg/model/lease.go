package model

import (
	"sync/atomic"
	"time"
)

// Lease tracks TTL and renewal state for one Instance. RenewalTime is held
// as a single atomic Unix-nanosecond timestamp rather than behind a mutex,
// so renew/is-expired never block a concurrent reader.
type Lease struct {
	Key          InstanceKey
	CreationTime time.Time
	TTL          time.Duration

	renewalNanos int64
	evictedNanos int64 // 0 until evicted, set exactly once
}

// NewLease creates a Lease for key with renewal_time = now.
func NewLease(key InstanceKey, ttl time.Duration, now time.Time) *Lease {
	l := &Lease{
		Key:          key,
		CreationTime: now,
		TTL:          ttl,
	}
	atomic.StoreInt64(&l.renewalNanos, now.UnixNano())
	return l
}

// Renew sets renewal_time to now.
func (l *Lease) Renew(now time.Time) {
	atomic.StoreInt64(&l.renewalNanos, now.UnixNano())
}

// RenewalTime returns the last renewal timestamp.
func (l *Lease) RenewalTime() time.Time {
	return time.Unix(0, atomic.LoadInt64(&l.renewalNanos))
}

// IsExpired reports whether now - renewal_time > ttl.
func (l *Lease) IsExpired(now time.Time) bool {
	return now.Sub(l.RenewalTime()) > l.TTL
}

// MarkEvicted records the eviction timestamp. It is a no-op if already set,
// giving single-shot semantics when two eviction passes race on one key.
func (l *Lease) MarkEvicted(now time.Time) bool {
	return atomic.CompareAndSwapInt64(&l.evictedNanos, 0, now.UnixNano())
}

// EvictionTime returns the eviction timestamp and whether it has been set.
func (l *Lease) EvictionTime() (time.Time, bool) {
	n := atomic.LoadInt64(&l.evictedNanos)
	if n == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}
