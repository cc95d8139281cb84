package wildlens

import (
	"context"
	"sync"
)

// MockProvider simulates a vision model transport for testing and offline
// development. Responses come from a fixed text, a scripted error, or a
// callback; every call is counted.
type MockProvider struct {
	mu    sync.Mutex
	name  string
	calls int
	fn    func(ctx context.Context, req *ModelRequest) (*ModelResponse, error)
}

// NewMockProvider creates a mock that always identifies a domestic cat.
func NewMockProvider() *MockProvider {
	return NewMockProviderWithResponse(`{"species": {"commonName": "Domestic Cat", "scientificName": "Felis catus", "confidence": 0.95}, "summary": "A domestic cat."}`)
}

// NewMockProviderWithResponse creates a mock that always returns the given
// text as the single completion candidate.
func NewMockProviderWithResponse(text string) *MockProvider {
	return &MockProvider{
		name: "mock",
		fn: func(_ context.Context, _ *ModelRequest) (*ModelResponse, error) {
			return &ModelResponse{
				Candidates: []Candidate{{Text: text, FinishReason: "stop"}},
				Usage:      TokenUsage{Prompt: 100, Completion: 50, Total: 150},
			}, nil
		},
	}
}

// NewMockProviderWithError creates a mock whose calls always fail with err.
func NewMockProviderWithError(err error) *MockProvider {
	return &MockProvider{
		name: "mock",
		fn: func(_ context.Context, _ *ModelRequest) (*ModelResponse, error) {
			return nil, err
		},
	}
}

// NewMockProviderWithCallback creates a mock that delegates to a callback.
func NewMockProviderWithCallback(fn func(ctx context.Context, req *ModelRequest) (*ModelResponse, error)) *MockProvider {
	return &MockProvider{name: "mock", fn: fn}
}

// Call implements Provider.
func (m *MockProvider) Call(ctx context.Context, req *ModelRequest) (*ModelResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.fn(ctx, req)
}

// Name implements Provider.
func (m *MockProvider) Name() string {
	return m.name
}

// Calls returns how many times the provider was invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// TextResponse wraps text into a single-candidate model response. Handy
// for callback mocks.
func TextResponse(text string) *ModelResponse {
	return &ModelResponse{
		Candidates: []Candidate{{Text: text, FinishReason: "stop"}},
		Usage:      TokenUsage{Prompt: 100, Completion: 50, Total: 150},
	}
}
