package analysis

import (
	"sync"
	"time"

	"chiron/internal/metrics"
)

// Circuit breaker defaults for the narrative collaborator.
const (
	DefaultBreakerThreshold = 3
	DefaultBreakerCooldown  = 5 * time.Minute
)

// CircuitBreaker guards one best-effort collaborator instance. After
// threshold consecutive failures it opens and short-circuits calls until the
// cooldown elapses, then allows a single probe through (half-open).
type CircuitBreaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	failures  int
	openedAt  time.Time
}

// NewCircuitBreaker creates a breaker; non-positive arguments fall back to
// the package defaults.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a call may proceed.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return true
	}
	return time.Since(b.openedAt) >= b.cooldown
}

// RecordSuccess closes the breaker.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// RecordFailure counts a failure and opens the breaker at the threshold.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.failures == b.threshold {
		b.openedAt = time.Now()
		metrics.NarrativeBreakerTrips.Inc()
	} else if b.failures > b.threshold {
		// Failed probe while half-open: restart the cooldown.
		b.openedAt = time.Now()
	}
}
