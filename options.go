package wildlens

import "time"

// serviceOptions collects the tunables applied at service construction.
type serviceOptions struct {
	failureThreshold  int
	cooldown          time.Duration
	maxRetries        int
	baseDelay         time.Duration
	retryPredicate    RetryPredicate
	timeout           time.Duration
	rateLimitRPS      float64
	rateLimitBurst    int
	fallback          Provider
	cacheTTL          time.Duration
	maxResponseLength int
}

// Option configures a Service at construction time.
type Option func(*serviceOptions)

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		failureThreshold:  DefaultFailureThreshold,
		cooldown:          DefaultCooldown,
		maxRetries:        DefaultMaxRetries,
		baseDelay:         DefaultBaseDelay,
		maxResponseLength: DefaultMaxResponseLength,
	}
}

// WithRetry overrides the retry policy (default: 3 retries, 1s base delay).
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(o *serviceOptions) {
		o.maxRetries = maxRetries
		o.baseDelay = baseDelay
	}
}

// WithRetryPredicate forces retries for errors the classification marked
// non-retryable. The predicate is OR-ed with each error's Retryable flag.
func WithRetryPredicate(p RetryPredicate) Option {
	return func(o *serviceOptions) {
		o.retryPredicate = p
	}
}

// WithCircuitBreaker overrides the breaker policy (default: 5 consecutive
// failures, 60s cool-down).
func WithCircuitBreaker(failureThreshold int, cooldown time.Duration) Option {
	return func(o *serviceOptions) {
		o.failureThreshold = failureThreshold
		o.cooldown = cooldown
	}
}

// WithTimeout bounds each transport attempt. Attempts exceeding the
// duration are canceled and classified as timeout_error.
func WithTimeout(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.timeout = d
	}
}

// WithRateLimit throttles identification calls before they reach the
// circuit breaker. rps is requests per second, burst the burst capacity.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *serviceOptions) {
		o.rateLimitRPS = rps
		o.rateLimitBurst = burst
	}
}

// WithFallback adds a secondary provider tried when the primary's
// transport call fails.
func WithFallback(fallback Provider) Option {
	return func(o *serviceOptions) {
		o.fallback = fallback
	}
}

// WithCache memoizes successful identification results in memory for ttl,
// keyed by image payload digest and model. Identical photos skip the
// provider entirely while cached.
func WithCache(ttl time.Duration) Option {
	return func(o *serviceOptions) {
		o.cacheTTL = ttl
	}
}

// WithResponseLimit overrides the raw-response length budget used by the
// truncation policy (default 1000 characters).
func WithResponseLimit(maxLength int) Option {
	return func(o *serviceOptions) {
		o.maxResponseLength = maxLength
	}
}
