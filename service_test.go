package wildlens

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// quiet removes real sleeps from a service's retry manager.
func quiet(s *Service) *Service {
	s.retry.sleep = func(time.Duration) {}
	s.retry.jitter = func() time.Duration { return 0 }
	return s
}

func TestNewService(t *testing.T) {
	t.Run("defaults_filled", func(t *testing.T) {
		s := NewService(NewMockProvider(), Config{APIKey: "sk-test"})
		cfg := s.Config()
		if cfg.BaseURL == "" || cfg.Model == "" || cfg.MaxTokens == 0 || cfg.Timeout == 0 {
			t.Errorf("zero config fields not defaulted: %+v", cfg)
		}
		if cfg.APIKey != "sk-test" {
			t.Errorf("credential lost: %+v", cfg)
		}
	})

	t.Run("starts_closed", func(t *testing.T) {
		s := NewService(NewMockProvider(), DefaultConfig())
		if s.CircuitBreakerState() != BreakerClosed {
			t.Errorf("expected CLOSED at startup, got %s", s.CircuitBreakerState())
		}
	})
}

func TestService_IdentifySpecies(t *testing.T) {
	ctx := context.Background()

	t.Run("clamps_overconfident_result", func(t *testing.T) {
		provider := NewMockProviderWithResponse(`{"species": {"commonName": "Domestic Cat", "scientificName": "Felis catus", "confidence": 1.4}, "summary": "A cat."}`)
		s := quiet(NewService(provider, DefaultConfig()))

		result, err := s.IdentifySpecies(ctx, "data:image/jpeg;base64,Zm9v")
		if err != nil {
			t.Fatalf("IdentifySpecies failed: %v", err)
		}
		if result.Species.Confidence != 1.0 {
			t.Errorf("expected confidence clamped to 1.0, got %f", result.Species.Confidence)
		}
		if result.Summary != "A cat." {
			t.Errorf("unexpected summary: %s", result.Summary)
		}
		if result.Error != nil {
			t.Error("expected no error variant")
		}
	})

	t.Run("empty_payload_rejected", func(t *testing.T) {
		provider := NewMockProvider()
		s := quiet(NewService(provider, DefaultConfig()))
		_, err := s.IdentifySpecies(ctx, "   ")
		assertKind(t, err, ErrKindValidation, false)
		if provider.Calls() != 0 {
			t.Errorf("provider called %d times for empty payload", provider.Calls())
		}
	})

	t.Run("auth_error_no_retries", func(t *testing.T) {
		provider := NewMockProviderWithError(NewAuthError("invalid api key", "401"))
		s := quiet(NewService(provider, DefaultConfig()))

		_, err := s.IdentifySpecies(ctx, "data:image/jpeg;base64,Zm9v")
		assertKind(t, err, ErrKindAuth, false)
		if provider.Calls() != 1 {
			t.Errorf("expected exactly 1 provider call, got %d", provider.Calls())
		}
	})

	t.Run("retryable_error_retried_then_succeeds", func(t *testing.T) {
		calls := 0
		provider := NewMockProviderWithCallback(func(_ context.Context, _ *ModelRequest) (*ModelResponse, error) {
			calls++
			if calls < 3 {
				return nil, NewAPIError("temporarily down", "503")
			}
			return TextResponse(`{"species": {"commonName": "Raccoon", "scientificName": "Procyon lotor", "confidence": 0.88}, "summary": "A raccoon."}`), nil
		})
		s := quiet(NewService(provider, DefaultConfig()))

		result, err := s.IdentifySpecies(ctx, "data:image/jpeg;base64,Zm9v")
		if err != nil {
			t.Fatalf("IdentifySpecies failed: %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 attempts, got %d", calls)
		}
		if result.Species.CommonName != "Raccoon" {
			t.Errorf("unexpected species: %s", result.Species.CommonName)
		}
	})

	t.Run("retry_exhaustion_surfaces_last_error", func(t *testing.T) {
		provider := NewMockProviderWithError(NewAPIError("still down", "500"))
		s := quiet(NewService(provider, DefaultConfig(), WithRetry(2, time.Millisecond)))

		_, err := s.IdentifySpecies(ctx, "data:image/jpeg;base64,Zm9v")
		assertKind(t, err, ErrKindAPI, true)
		if provider.Calls() != 3 {
			t.Errorf("expected 3 attempts (2 retries), got %d", provider.Calls())
		}
	})

	t.Run("processing_error_not_retried", func(t *testing.T) {
		provider := NewMockProviderWithResponse("definitely not json")
		s := quiet(NewService(provider, DefaultConfig()))

		_, err := s.IdentifySpecies(ctx, "data:image/jpeg;base64,Zm9v")
		assertKind(t, err, ErrKindProcessing, false)
		if provider.Calls() != 1 {
			t.Errorf("expected 1 provider call, got %d", provider.Calls())
		}
	})

	t.Run("error_variant_returned_not_thrown", func(t *testing.T) {
		provider := NewMockProviderWithResponse(`{"error": "image too dark", "suggestions": ["use flash"]}`)
		s := quiet(NewService(provider, DefaultConfig()))

		result, err := s.IdentifySpecies(ctx, "data:image/jpeg;base64,Zm9v")
		if err != nil {
			t.Fatalf("error variant should not fail the call: %v", err)
		}
		if result.Error == nil || result.Error.Message != "image too dark" {
			t.Errorf("expected error variant preserved, got %+v", result.Error)
		}
		if result.Species.CommonName != "Unknown" {
			t.Errorf("expected placeholder species, got %s", result.Species.CommonName)
		}
	})
}

func TestService_CircuitBreaker(t *testing.T) {
	ctx := context.Background()

	t.Run("consecutive_failures_trip_breaker", func(t *testing.T) {
		provider := NewMockProviderWithError(NewAPIError("internal error", "500"))
		s := quiet(NewService(provider, DefaultConfig(), WithRetry(0, time.Millisecond)))

		for i := 0; i < 5; i++ {
			if _, err := s.IdentifySpecies(ctx, "data:image/jpeg;base64,Zm9v"); err == nil {
				t.Fatal("expected failure")
			}
		}
		if s.CircuitBreakerState() != BreakerOpen {
			t.Fatalf("expected OPEN after 5 consecutive failures, got %s", s.CircuitBreakerState())
		}

		before := provider.Calls()
		_, err := s.IdentifySpecies(ctx, "data:image/jpeg;base64,Zm9v")
		assertKind(t, err, ErrKindAPI, true)
		var cerr *Error
		errors.As(err, &cerr)
		if !strings.Contains(cerr.Message, "seconds") {
			t.Errorf("expected remaining wait in message, got %q", cerr.Message)
		}
		if provider.Calls() != before {
			t.Errorf("network call made while breaker OPEN: %d -> %d", before, provider.Calls())
		}
	})

	t.Run("manual_reset_recovers", func(t *testing.T) {
		provider := NewMockProviderWithError(NewAPIError("internal error", "500"))
		s := quiet(NewService(provider, DefaultConfig(), WithRetry(0, time.Millisecond), WithCircuitBreaker(2, time.Hour)))

		_, _ = s.IdentifySpecies(ctx, "data:image/jpeg;base64,Zm9v")
		_, _ = s.IdentifySpecies(ctx, "data:image/jpeg;base64,Zm9v")
		if s.CircuitBreakerState() != BreakerOpen {
			t.Fatal("breaker should be OPEN")
		}

		s.ResetCircuitBreaker()
		if s.CircuitBreakerState() != BreakerClosed {
			t.Errorf("expected CLOSED after reset, got %s", s.CircuitBreakerState())
		}
	})
}

func TestService_TestConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy_endpoint", func(t *testing.T) {
		provider := NewMockProviderWithResponse(`{"ok": true}`)
		s := NewService(provider, DefaultConfig())
		if !s.TestConnection(ctx) {
			t.Error("expected true for healthy endpoint")
		}
		if provider.Calls() != 1 {
			t.Errorf("expected a single lightweight call, got %d", provider.Calls())
		}
	})

	t.Run("swallows_errors", func(t *testing.T) {
		provider := NewMockProviderWithError(NewNetworkError("unreachable", nil))
		s := NewService(provider, DefaultConfig())
		if s.TestConnection(ctx) {
			t.Error("expected false for failing endpoint")
		}
	})

	t.Run("probe_is_text_only", func(t *testing.T) {
		var probe *ModelRequest
		provider := NewMockProviderWithCallback(func(_ context.Context, req *ModelRequest) (*ModelResponse, error) {
			probe = req
			return TextResponse(`{"ok": true}`), nil
		})
		s := NewService(provider, DefaultConfig())
		s.TestConnection(ctx)
		if probe == nil {
			t.Fatal("provider not called")
		}
		if probe.ImagePayload != "" {
			t.Error("connection probe should not carry an image payload")
		}
	})
}

func TestService_UpdateConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("next_call_sees_new_model", func(t *testing.T) {
		var seen []string
		provider := NewMockProviderWithCallback(func(_ context.Context, req *ModelRequest) (*ModelResponse, error) {
			seen = append(seen, req.Model)
			return TextResponse(`{"species": {"commonName": "Coyote", "scientificName": "Canis latrans", "confidence": 0.8}, "summary": "A coyote."}`), nil
		})
		s := quiet(NewService(provider, DefaultConfig()))

		if _, err := s.IdentifySpecies(ctx, "data:image/jpeg;base64,Zm9v"); err != nil {
			t.Fatalf("IdentifySpecies failed: %v", err)
		}
		model := "gpt-4o-mini"
		s.UpdateConfig(ConfigUpdate{Model: &model})
		if _, err := s.IdentifySpecies(ctx, "data:image/jpeg;base64,YmFy"); err != nil {
			t.Fatalf("IdentifySpecies failed: %v", err)
		}

		if len(seen) != 2 || seen[0] == seen[1] {
			t.Fatalf("expected model change between calls, saw %v", seen)
		}
		if seen[1] != "gpt-4o-mini" {
			t.Errorf("expected updated model on second call, got %s", seen[1])
		}
	})

	t.Run("merge_preserves_unset_fields", func(t *testing.T) {
		s := NewService(NewMockProvider(), Config{APIKey: "sk-test"})
		temp := float32(0.7)
		s.UpdateConfig(ConfigUpdate{Temperature: &temp})
		cfg := s.Config()
		if cfg.Temperature != 0.7 {
			t.Errorf("temperature not updated: %f", cfg.Temperature)
		}
		if cfg.APIKey != "sk-test" {
			t.Error("unrelated field clobbered by partial update")
		}
	})
}

func TestService_Options(t *testing.T) {
	ctx := context.Background()
	catJSON := `{"species": {"commonName": "Domestic Cat", "scientificName": "Felis catus", "confidence": 0.9}, "summary": "A cat."}`

	t.Run("cache_hit_skips_provider", func(t *testing.T) {
		provider := NewMockProviderWithResponse(catJSON)
		s := quiet(NewService(provider, DefaultConfig(), WithCache(time.Minute)))

		first, err := s.IdentifySpecies(ctx, "data:image/jpeg;base64,Zm9v")
		if err != nil {
			t.Fatalf("first call failed: %v", err)
		}
		second, err := s.IdentifySpecies(ctx, "data:image/jpeg;base64,Zm9v")
		if err != nil {
			t.Fatalf("second call failed: %v", err)
		}
		if provider.Calls() != 1 {
			t.Errorf("expected cache hit on second call, provider called %d times", provider.Calls())
		}
		if first.Species.CommonName != second.Species.CommonName {
			t.Error("cached result differs from original")
		}

		// A different photo misses the cache.
		if _, err := s.IdentifySpecies(ctx, "data:image/jpeg;base64,YmFy"); err != nil {
			t.Fatalf("third call failed: %v", err)
		}
		if provider.Calls() != 2 {
			t.Errorf("expected cache miss for new payload, provider called %d times", provider.Calls())
		}
	})

	t.Run("fallback_provider_used", func(t *testing.T) {
		primary := NewMockProviderWithError(NewNetworkError("primary unreachable", nil))
		fallback := NewMockProviderWithResponse(catJSON)
		s := quiet(NewService(primary, DefaultConfig(), WithFallback(fallback)))

		result, err := s.IdentifySpecies(ctx, "data:image/jpeg;base64,Zm9v")
		if err != nil {
			t.Fatalf("expected fallback to rescue the call: %v", err)
		}
		if result.Species.CommonName != "Domestic Cat" {
			t.Errorf("unexpected result: %s", result.Species.CommonName)
		}
		if fallback.Calls() == 0 {
			t.Error("fallback provider never invoked")
		}
	})

	t.Run("response_limit_applies", func(t *testing.T) {
		long := `{"species": {"commonName": "Elk", "scientificName": "Cervus canadensis", "confidence": 0.9}, "summary": "` + strings.Repeat("big ", 100) + `"}`
		provider := NewMockProviderWithResponse(long)
		s := quiet(NewService(provider, DefaultConfig(), WithResponseLimit(120)))

		result, err := s.IdentifySpecies(ctx, "data:image/jpeg;base64,Zm9v")
		if err != nil {
			t.Fatalf("IdentifySpecies failed: %v", err)
		}
		// The reduced object keeps species and summary only.
		if result.Species.CommonName != "Elk" {
			t.Errorf("species lost in truncation: %+v", result.Species)
		}
	})
}
