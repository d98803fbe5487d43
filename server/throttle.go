package server

import (
	"math"

	"golang.org/x/time/rate"
)

// throttle is the service-wide QPS ceiling. It is deliberately coarser
// than the gate's per-identity limiter: its job is protecting the
// database, not fairness between callers.
type throttle struct {
	limiter *rate.Limiter
}

// newThrottle returns nil when qps is zero or negative; a nil throttle
// admits everything.
func newThrottle(qps float64, burst int) *throttle {
	if qps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = int(math.Ceil(qps))
		if burst < 1 {
			burst = 1
		}
	}
	return &throttle{limiter: rate.NewLimiter(rate.Limit(qps), burst)}
}

// allow reports whether one more query may run now. It never blocks.
func (t *throttle) allow() bool {
	if t == nil {
		return true
	}
	return t.limiter.Allow()
}
