package registry

import "testing"

func TestRateLimiterRejectsBeyondCapacity(t *testing.T) {
	const capacity = 5
	l := NewRateLimiter(capacity)

	accepted := 0
	for i := 0; i < capacity+1; i++ {
		if l.Check() {
			accepted++
		}
	}

	if accepted != capacity {
		t.Fatalf("expected exactly %d admissions for burst capacity %d, got %d", capacity, capacity, accepted)
	}
	if l.Check() {
		t.Fatalf("expected the request beyond capacity to be rejected")
	}
}
