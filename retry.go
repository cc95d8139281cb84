package wildlens

import (
	"context"
	"math/rand"
	"time"

	"github.com/zoobzio/capitan"
)

// Retry defaults and bounds.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1000 * time.Millisecond

	maxBackoffDelay = 10 * time.Second
	maxJitter       = 1000 * time.Millisecond
)

// RetryPredicate can force a retry for errors whose classified Retryable
// flag is false. The decision is OR-ed with the flag; it cannot suppress a
// retry the flag already allows.
type RetryPredicate func(err *Error) bool

// RetryManager replays a fallible operation under bounded exponential
// backoff with jitter. Attempt counting includes the initial try, so an
// operation runs at most maxRetries+1 times.
type RetryManager struct {
	maxRetries int
	baseDelay  time.Duration

	// Seams for tests. The backoff delay is a plain suspension: it is not
	// cancelable mid-sleep, matching the cooperative model of the callers.
	sleep  func(d time.Duration)
	jitter func() time.Duration
}

// NewRetryManager creates a retry manager. A negative maxRetries or
// non-positive baseDelay falls back to the default; maxRetries of zero
// disables retries.
func NewRetryManager(maxRetries int, baseDelay time.Duration) *RetryManager {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &RetryManager{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleep:      time.Sleep,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(maxJitter)))
		},
	}
}

// Do runs op, retrying on failure while the error is retryable (or the
// predicate says so) and attempts remain. On exhaustion or a non-retryable
// error it returns the last classified error unchanged.
func (rm *RetryManager) Do(ctx context.Context, op func(context.Context) error, shouldRetry RetryPredicate) error {
	var lastErr *Error

	for attempt := 0; attempt <= rm.maxRetries; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = AsError(err)

		retry := lastErr.Retryable
		if !retry && shouldRetry != nil && shouldRetry(lastErr) {
			retry = true
		}
		if !retry || attempt == rm.maxRetries {
			return lastErr
		}

		delay := rm.delayFor(attempt)
		capitan.Emit(ctx, RetryScheduled,
			AttemptKey.Field(attempt+1),
			DelayMsKey.Field(int(delay.Milliseconds())),
			ErrorKey.Field(lastErr.Error()),
			ErrorKindKey.Field(string(lastErr.Kind)),
		)
		rm.sleep(delay)
	}

	return lastErr
}

// delayFor computes the backoff before the attempt following the given
// failed attempt (0-indexed): min(base * 2^n + jitter, maxBackoffDelay).
func (rm *RetryManager) delayFor(attempt int) time.Duration {
	d := rm.baseDelay << uint(attempt)
	d += rm.jitter()
	if d > maxBackoffDelay {
		d = maxBackoffDelay
	}
	return d
}
