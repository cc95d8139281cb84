package wildlens

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// IdentifyRequest flows through the pipz pipeline. It carries the prompt
// and call parameters inward and the raw model response back out.
type IdentifyRequest struct {
	// Input fields
	Prompt       *Prompt
	ImagePayload string
	Model        string
	MaxTokens    int
	Temperature  float32

	// Metadata fields
	RequestID string

	// Output fields (populated by the terminal processor)
	Response *ModelResponse
}

// Service is the single entry point for species identification. It
// composes circuit breaker, retry manager, transport, and response
// processor, in exactly that nesting order: an OPEN breaker short-circuits
// before any retry attempt or network call happens.
//
// A Service is safe for concurrent use. All concurrent calls share one
// circuit breaker instance.
type Service struct {
	mu     sync.RWMutex
	config Config

	provider       Provider
	fallback       Provider
	breaker        *CircuitBreaker
	retry          *RetryManager
	retryPredicate RetryPredicate
	processor      *ResponseProcessor
	pipeline       pipz.Chainable[*IdentifyRequest]
	results        *gocache.Cache
	schema         string
}

// NewService creates an identification service bound to a provider.
// Zero-valued config fields are filled from DefaultConfig; the credential
// is never defaulted.
func NewService(provider Provider, config Config, opts ...Option) *Service {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	if config.Temperature == 0 {
		config.Temperature = defaults.Temperature
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}

	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{
		config:         config,
		provider:       provider,
		fallback:       o.fallback,
		breaker:        NewCircuitBreaker(o.failureThreshold, o.cooldown),
		retry:          NewRetryManager(o.maxRetries, o.baseDelay),
		retryPredicate: o.retryPredicate,
		processor:      NewResponseProcessorWithLimit(o.maxResponseLength),
		schema:         schemaFor[IdentificationResult](),
	}
	if o.cacheTTL > 0 {
		s.results = gocache.New(o.cacheTTL, o.cacheTTL)
	}
	s.pipeline = s.buildPipeline(o)

	return s
}

// buildPipeline assembles the call chain. Innermost to outermost:
// transport terminal (with optional provider fallback), optional per-attempt
// timeout, retry manager, circuit breaker, optional rate limiter.
func (s *Service) buildPipeline(o serviceOptions) pipz.Chainable[*IdentifyRequest] {
	var pipeline pipz.Chainable[*IdentifyRequest] = newTerminal(s.provider)
	if o.fallback != nil {
		pipeline = pipz.NewFallback("provider-fallback", pipeline, newTerminal(o.fallback))
	}
	if o.timeout > 0 {
		pipeline = pipz.NewTimeout("attempt-timeout", pipeline, o.timeout)
	}

	attempt := pipeline
	pipeline = pipz.Apply("retry", func(ctx context.Context, req *IdentifyRequest) (*IdentifyRequest, error) {
		err := s.retry.Do(ctx, func(c context.Context) error {
			_, err := attempt.Process(c, req)
			return err
		}, s.retryPredicate)
		return req, err
	})

	retried := pipeline
	pipeline = pipz.Apply("circuit-breaker", func(ctx context.Context, req *IdentifyRequest) (*IdentifyRequest, error) {
		err := s.breaker.Execute(ctx, func(c context.Context) error {
			_, err := retried.Process(c, req)
			return err
		})
		return req, err
	})

	if o.rateLimitRPS > 0 {
		limiter := pipz.NewRateLimiter[*IdentifyRequest]("rate-limit", o.rateLimitRPS, o.rateLimitBurst)
		pipeline = pipz.NewSequence("rate-limited", limiter, pipeline)
	}

	return pipeline
}

// newTerminal creates the terminal processor that performs the actual
// provider call.
func newTerminal(provider Provider) pipz.Chainable[*IdentifyRequest] {
	return pipz.Apply("model-call", func(ctx context.Context, req *IdentifyRequest) (*IdentifyRequest, error) {
		resp, err := provider.Call(ctx, &ModelRequest{
			Model:        req.Model,
			Prompt:       req.Prompt.Render(),
			ImagePayload: req.ImagePayload,
			MaxTokens:    req.MaxTokens,
			Temperature:  req.Temperature,
		})
		if err != nil {
			return req, err
		}
		req.Response = resp
		return req, nil
	})
}

// IdentifySpecies submits an image payload to the model and returns the
// structured identification result. On failure the returned error is
// always a classified *Error; non-retryable kinds surface on the first
// occurrence, retryable kinds only after the retry budget is exhausted or
// the circuit breaker rejects the call outright.
func (s *Service) IdentifySpecies(ctx context.Context, imagePayload string) (*IdentificationResult, error) {
	if strings.TrimSpace(imagePayload) == "" {
		return nil, NewValidationError("image payload is empty", "")
	}

	// Configuration is snapshotted per call; updates apply to the next call.
	cfg := s.Config()

	var cacheKey string
	if s.results != nil {
		cacheKey = resultCacheKey(cfg.Model, imagePayload)
		if cached, found := s.results.Get(cacheKey); found {
			if result, ok := cached.(*IdentificationResult); ok {
				capitan.Emit(ctx, CacheHit, CacheKeyKey.Field(cacheKey), ModelKey.Field(cfg.Model))
				return result, nil
			}
		}
		capitan.Emit(ctx, CacheMiss, CacheKeyKey.Field(cacheKey), ModelKey.Field(cfg.Model))
	}

	req := &IdentifyRequest{
		Prompt:       identificationPrompt(s.schema),
		ImagePayload: imagePayload,
		Model:        cfg.Model,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
		RequestID:    uuid.New().String(),
	}

	capitan.Info(ctx, RequestStarted,
		RequestIDKey.Field(req.RequestID),
		ProviderKey.Field(s.provider.Name()),
		ModelKey.Field(cfg.Model),
	)

	processed, err := s.pipeline.Process(ctx, req)
	if err != nil {
		cerr := AsError(err)
		capitan.Error(ctx, RequestFailed,
			RequestIDKey.Field(req.RequestID),
			ProviderKey.Field(s.provider.Name()),
			ErrorKey.Field(cerr.Error()),
			ErrorKindKey.Field(string(cerr.Kind)),
			SuggestedActionKey.Field(cerr.SuggestedAction),
		)
		return nil, cerr
	}

	result, err := s.processor.Process(processed.Response)
	if err != nil {
		cerr := AsError(err)
		capitan.Error(ctx, ResponseRejected,
			RequestIDKey.Field(req.RequestID),
			ProviderKey.Field(s.provider.Name()),
			ErrorKey.Field(cerr.Error()),
			ErrorKindKey.Field(string(cerr.Kind)),
		)
		return nil, cerr
	}

	// Only genuine identifications are worth memoizing; the error variant
	// depends on transient photo problems the user is about to fix.
	if s.results != nil && result.Error == nil {
		s.results.Set(cacheKey, result, gocache.DefaultExpiration)
	}

	capitan.Info(ctx, RequestCompleted,
		RequestIDKey.Field(req.RequestID),
		ProviderKey.Field(s.provider.Name()),
		SpeciesKey.Field(result.Species.CommonName),
		ConfidenceKey.Field(result.Species.Confidence),
		PromptTokensKey.Field(processed.Response.Usage.Prompt),
		CompletionTokensKey.Field(processed.Response.Usage.Completion),
		TotalTokensKey.Field(processed.Response.Usage.Total),
	)

	return result, nil
}

// TestConnection makes a single lightweight text-only call and reports
// whether it succeeded. It bypasses retry and breaker and swallows all
// errors.
func (s *Service) TestConnection(ctx context.Context) bool {
	cfg := s.Config()
	_, err := s.provider.Call(ctx, &ModelRequest{
		Model:       cfg.Model,
		Prompt:      connectionProbePrompt().Render(),
		MaxTokens:   16,
		Temperature: cfg.Temperature,
	})
	return err == nil
}

// Config returns a snapshot of the current configuration.
func (s *Service) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// UpdateConfig merges a partial update into the configuration and
// propagates connection settings to providers that support it. The update
// takes effect on subsequent calls only.
func (s *Service) UpdateConfig(update ConfigUpdate) {
	s.mu.Lock()
	s.config = s.config.Apply(update)
	s.mu.Unlock()

	if rc, ok := s.provider.(Reconfigurable); ok {
		rc.UpdateConfig(update)
	}
	if rc, ok := s.fallback.(Reconfigurable); ok {
		rc.UpdateConfig(update)
	}
}

// CircuitBreakerState exposes the shared breaker state for display.
func (s *Service) CircuitBreakerState() BreakerState {
	return s.breaker.State()
}

// ResetCircuitBreaker forces the breaker CLOSED. Intended as an explicit
// user-triggered recovery action.
func (s *Service) ResetCircuitBreaker() {
	s.breaker.Reset()
}

// resultCacheKey digests the model and image payload so cached results
// never leak across models or photos.
func resultCacheKey(model, imagePayload string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + imagePayload))
	return hex.EncodeToString(sum[:])
}
