package wildlens

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
)

// BreakerState is the circuit breaker state machine position.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // Normal operation; calls pass through.
	BreakerOpen                         // Failing; calls are rejected immediately.
	BreakerHalfOpen                     // Probing; a trial call decides recovery.
)

// String returns the canonical state name.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 60 * time.Second
)

// CircuitBreaker stops calling a failing downstream for a cool-down period
// after repeated consecutive failures. One breaker exists per configured
// service; concurrent calls share its failure-count state, guarded by a
// mutex.
type CircuitBreaker struct {
	mu sync.Mutex

	state       BreakerState
	threshold   int
	cooldown    time.Duration
	failures    int
	lastFailure time.Time

	now func() time.Time // test seam
}

// NewCircuitBreaker creates a breaker. Non-positive arguments fall back to
// the defaults.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &CircuitBreaker{
		state:     BreakerClosed,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Execute runs op through the breaker. While OPEN and inside the cool-down
// window it fails fast with a retryable api_error carrying the remaining
// wait; op is never invoked. In CLOSED or HALF_OPEN the op runs: success
// resets the failure count and closes the breaker, failure increments the
// count (HALF_OPEN failure reopens immediately with a restarted timer).
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.allow(ctx); err != nil {
		return err
	}

	if err := op(ctx); err != nil {
		cb.recordFailure(ctx)
		return err
	}

	cb.recordSuccess(ctx)
	return nil
}

// State returns the current state, promoting OPEN to HALF_OPEN when the
// cool-down has elapsed.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.updateLocked(context.Background())
}

// Failures returns the current consecutive-failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset clears the failure count and forces the breaker CLOSED. It exists
// as an explicit user-triggered recovery action; the only automatic path
// back to CLOSED is a successful HALF_OPEN probe.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.transitionLocked(context.Background(), BreakerClosed)
}

func (cb *CircuitBreaker) allow(ctx context.Context) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.updateLocked(ctx) == BreakerOpen {
		remaining := cb.cooldown - cb.now().Sub(cb.lastFailure)
		return NewAPIError(
			fmt.Sprintf("identification service temporarily unavailable, retry in %.0f seconds", remaining.Seconds()),
			"circuit_open",
		)
	}
	return nil
}

func (cb *CircuitBreaker) recordSuccess(ctx context.Context) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	if cb.state != BreakerClosed {
		cb.transitionLocked(ctx, BreakerClosed)
	}
}

func (cb *CircuitBreaker) recordFailure(ctx context.Context) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.now()

	if cb.state == BreakerHalfOpen {
		// Probe failed: reopen with the cool-down timer restarted.
		cb.transitionLocked(ctx, BreakerOpen)
		return
	}
	if cb.state == BreakerClosed && cb.failures >= cb.threshold {
		cb.transitionLocked(ctx, BreakerOpen)
	}
}

// updateLocked applies the time-driven OPEN -> HALF_OPEN transition.
// Callers must hold cb.mu.
func (cb *CircuitBreaker) updateLocked(ctx context.Context) BreakerState {
	if cb.state == BreakerOpen && cb.now().Sub(cb.lastFailure) >= cb.cooldown {
		cb.transitionLocked(ctx, BreakerHalfOpen)
	}
	return cb.state
}

// transitionLocked changes state and emits the breaker hook event.
// Callers must hold cb.mu.
func (cb *CircuitBreaker) transitionLocked(ctx context.Context, next BreakerState) {
	if cb.state == next {
		return
	}
	cb.state = next
	capitan.Emit(ctx, BreakerStateChanged,
		BreakerStateKey.Field(next.String()),
		FailureCountKey.Field(cb.failures),
	)
}
