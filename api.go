// Package wildlens provides a resilient client for photo-based species
// identification against vision-capable LLM APIs.
//
// The package turns a prepared image payload into a validated, structured
// identification result while surviving network failures, malformed or
// oversized model output, and repeated downstream outages. Four layers
// cooperate on every call:
//
//   - A transport client performs one HTTP call and classifies every
//     failure mode into a typed, retryable-flagged error.
//   - A retry manager replays retryable failures under bounded
//     exponential backoff with jitter.
//   - A circuit breaker trips after consecutive failures across calls and
//     fails fast until a cool-down elapses.
//   - A response processor parses, validates, sanitizes, and truncates the
//     raw model text into a strict result shape.
//
// Basic usage:
//
//	provider := openai.New(openai.Config{APIKey: apiKey})
//	service := wildlens.NewService(provider, wildlens.DefaultConfig())
//	result, err := service.IdentifySpecies(ctx, wildlens.EncodeImage(photo, "image/jpeg"))
//
// The package emits capitan hook events for every request, provider call,
// retry, breaker transition, and cache interaction; see hooks.go.
package wildlens

import (
	"context"
	"encoding/base64"
)

// Provider defines the interface for vision model transports.
// Implementations perform exactly one call per invocation, classify every
// failure into a *wildlens.Error, and never retry internally; retries and
// circuit breaking belong to the Service.
type Provider interface {
	// Call sends one prepared request to the model and returns the raw
	// response. The context carries cancellation; per-request timeouts are
	// the implementation's responsibility.
	Call(ctx context.Context, req *ModelRequest) (*ModelResponse, error)

	// Name returns the provider identifier (e.g. "openai").
	Name() string
}

// Reconfigurable is implemented by providers whose connection settings
// (endpoint, credential, timeout) can be swapped between calls. Updates
// apply to subsequent calls only; in-flight requests are unaffected.
type Reconfigurable interface {
	UpdateConfig(update ConfigUpdate)
}

// ModelRequest is a single prepared call to the vision model.
// It is constructed per call from the current service configuration and is
// not retained after the call completes.
type ModelRequest struct {
	Model        string  // Model identifier (e.g. "gpt-4o")
	Prompt       string  // Rendered instruction prompt
	ImagePayload string  // Data URL or base64-encoded image; empty for text-only probes
	MaxTokens    int     // Maximum completion tokens
	Temperature  float32 // Sampling temperature
}

// Candidate is one completion choice from the model.
type Candidate struct {
	Text         string // Raw text payload
	FinishReason string // Provider finish indicator ("stop", "length", ...)
}

// TokenUsage contains token counts from a provider response.
type TokenUsage struct {
	Prompt     int
	Completion int
	Total      int
}

// ModelResponse is the raw provider response. It is transient: the
// ResponseProcessor consumes it immediately after the transport returns.
type ModelResponse struct {
	Candidates []Candidate
	Usage      TokenUsage
}

// EncodeImage wraps already-encoded image bytes into a data URL suitable
// for the ImagePayload field. It never resizes or re-encodes pixels; the
// caller supplies a ready-to-send image. An empty mimeType defaults to
// image/jpeg.
func EncodeImage(data []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
