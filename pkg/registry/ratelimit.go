package registry

import "golang.org/x/time/rate"

// RateLimiter is a token bucket admitting rps writes/second with burst
// capacity rps, applied at the edge of register/heartbeat/unregister. It
// wraps golang.org/x/time/rate's Limiter, which guards its state with a
// mutex; it is not lock-free.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a RateLimiter with the given rate and burst
// capacity of rps tokens.
func NewRateLimiter(rps int) *RateLimiter {
	if rps <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), rps)}
}

// Check consumes one token if available without blocking.
func (l *RateLimiter) Check() bool {
	return l.limiter.Allow()
}
