package wildlens

import "github.com/zoobzio/capitan"

// Signals for hook events.
const (
	RequestStarted   = capitan.Signal("wildlens.request.started")
	RequestCompleted = capitan.Signal("wildlens.request.completed")
	RequestFailed    = capitan.Signal("wildlens.request.failed")

	ProviderCallStarted   = capitan.Signal("wildlens.provider.call.started")
	ProviderCallCompleted = capitan.Signal("wildlens.provider.call.completed")
	ProviderCallFailed    = capitan.Signal("wildlens.provider.call.failed")

	ResponseRejected    = capitan.Signal("wildlens.response.rejected")
	RetryScheduled      = capitan.Signal("wildlens.retry.scheduled")
	BreakerStateChanged = capitan.Signal("wildlens.breaker.state")
	CacheHit            = capitan.Signal("wildlens.cache.hit")
	CacheMiss           = capitan.Signal("wildlens.cache.miss")
)

// Keys for hook event fields.
var (
	// Request identification.
	RequestIDKey = capitan.NewStringKey("wildlens.request.id")
	ProviderKey  = capitan.NewStringKey("wildlens.provider")
	ModelKey     = capitan.NewStringKey("wildlens.model")

	// Error information.
	ErrorKey           = capitan.NewStringKey("wildlens.error")
	ErrorKindKey       = capitan.NewStringKey("wildlens.error.kind")
	SuggestedActionKey = capitan.NewStringKey("wildlens.error.action")

	// Retry and breaker state.
	AttemptKey      = capitan.NewIntKey("wildlens.retry.attempt")
	DelayMsKey      = capitan.NewIntKey("wildlens.retry.delay.ms")
	BreakerStateKey = capitan.NewStringKey("wildlens.breaker.state")
	FailureCountKey = capitan.NewIntKey("wildlens.breaker.failures")

	// Result data.
	SpeciesKey    = capitan.NewStringKey("wildlens.species.common")
	ConfidenceKey = capitan.NewFloat64Key("wildlens.species.confidence")

	// Provider metrics.
	PromptTokensKey     = capitan.NewIntKey("wildlens.tokens.prompt")
	CompletionTokensKey = capitan.NewIntKey("wildlens.tokens.completion")
	TotalTokensKey      = capitan.NewIntKey("wildlens.tokens.total")
	DurationMsKey       = capitan.NewIntKey("wildlens.duration.ms")

	// HTTP/API metadata.
	HTTPStatusCodeKey = capitan.NewIntKey("wildlens.http.status.code")
	FinishReasonKey   = capitan.NewStringKey("wildlens.response.finish.reason")

	// Cache metadata.
	CacheKeyKey = capitan.NewStringKey("wildlens.cache.key")
)
