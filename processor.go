package wildlens

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultMaxResponseLength is the raw-text budget applied before parsing.
// Responses longer than this go through the truncation policy.
const DefaultMaxResponseLength = 1000

// unidentifiedSummary is the fixed summary used for the error variant.
const unidentifiedSummary = "No species could be identified in this image."

// ResponseProcessor converts raw model text into an IdentificationResult,
// defensively. The model output is untrusted input: it is parsed into a
// loosely-typed intermediate form and then coerced field by field into the
// strict result shape. A zero-value ResponseProcessor is not usable; build
// one with NewResponseProcessor.
type ResponseProcessor struct {
	maxLength int
}

// NewResponseProcessor creates a processor with the default response
// length budget.
func NewResponseProcessor() *ResponseProcessor {
	return &ResponseProcessor{maxLength: DefaultMaxResponseLength}
}

// NewResponseProcessorWithLimit creates a processor with a custom raw-text
// budget. Limits below 1 fall back to the default.
func NewResponseProcessorWithLimit(maxLength int) *ResponseProcessor {
	if maxLength < 1 {
		maxLength = DefaultMaxResponseLength
	}
	return &ResponseProcessor{maxLength: maxLength}
}

// Process converts a raw model response into a structured result.
// It fails with a non-retryable processing_error when the first candidate
// has no text, no JSON object can be located in the text, or the JSON does
// not parse. A response that parses but lacks the primary species
// identifiers fails with a validation_error.
func (p *ResponseProcessor) Process(raw *ModelResponse) (*IdentificationResult, error) {
	if raw == nil || len(raw.Candidates) == 0 || strings.TrimSpace(raw.Candidates[0].Text) == "" {
		return nil, NewProcessingError("model response contained no text content", nil)
	}

	text := p.Truncate(raw.Candidates[0].Text)

	span, ok := jsonSpan(text)
	if !ok {
		return nil, NewProcessingError("no JSON object found in model response", nil)
	}

	var loose map[string]any
	if err := json.Unmarshal([]byte(span), &loose); err != nil {
		return nil, NewProcessingError("model response JSON did not parse", err)
	}

	// The model declined to identify: short-circuit to the error variant
	// with the placeholder species.
	if errVal, present := loose["error"]; present {
		return &IdentificationResult{
			Species: Species{CommonName: "Unknown", ScientificName: "Unknown", Confidence: 0},
			Summary: unidentifiedSummary,
			Error: &ErrorInfo{
				Message:     asString(errVal),
				Reasons:     asStringSlice(loose["reasons"]),
				Suggestions: asStringSlice(loose["suggestions"]),
			},
		}, nil
	}

	speciesObj, ok := loose["species"].(map[string]any)
	if !ok {
		return nil, NewValidationError("model response missing species object", "")
	}
	commonName := asString(speciesObj["commonName"])
	scientificName := asString(speciesObj["scientificName"])
	if commonName == "" || scientificName == "" {
		return nil, NewValidationError("model response missing species identifiers", "")
	}

	result := &IdentificationResult{
		Species: Species{
			CommonName:     commonName,
			ScientificName: scientificName,
			Confidence:     clamp01(asFloat(speciesObj["confidence"])),
			Family:         asString(speciesObj["family"]),
			Order:          asString(speciesObj["order"]),
			Class:          asString(speciesObj["class"]),
		},
		Summary: asString(loose["summary"]),
	}

	if alts, ok := loose["alternatives"].([]any); ok {
		for _, item := range alts {
			alt, ok := item.(map[string]any)
			if !ok {
				continue
			}
			result.Alternatives = append(result.Alternatives, SpeciesCandidate{
				CommonName:     asString(alt["commonName"]),
				ScientificName: asString(alt["scientificName"]),
				Confidence:     clamp01(asFloat(alt["confidence"])),
			})
		}
	}

	if det, ok := loose["details"].(map[string]any); ok {
		result.Details = &Details{
			Habitat:            asString(det["habitat"]),
			Behavior:           asString(det["behavior"]),
			ConservationStatus: asString(det["conservationStatus"]),
			Facts:              asStringSlice(det["facts"]),
		}
	}

	if iq, ok := loose["imageQuality"].(map[string]any); ok {
		result.ImageQuality = &ImageQuality{
			Assessment: asString(iq["assessment"]),
			Issues:     asStringSlice(iq["issues"]),
		}
	}

	if err := result.Validate(); err != nil {
		return nil, NewValidationError(err.Error(), "")
	}

	return result, nil
}

// Truncate applies the response length budget to raw model text. Text
// within budget passes through unchanged. Oversized text is handled in
// order of preference:
//
//  1. If the embedded JSON span itself fits the budget, the text is
//     returned unchanged; only oversized JSON is a problem downstream.
//  2. If the span parses but is too large, a reduced object retaining only
//     species and summary is emitted, with an explicit truncation marker.
//  3. Otherwise the text is hard-cut at the budget and an ellipsis marker
//     appended. The hard-cut output may not be parseable JSON; callers see
//     that as a processing_error.
//
// Truncate is idempotent: re-applying it to its own output yields the same
// output.
func (p *ResponseProcessor) Truncate(text string) string {
	if len(text) <= p.maxLength {
		return text
	}

	if span, ok := jsonSpan(text); ok {
		if len(span) <= p.maxLength {
			return text
		}
		var loose map[string]any
		if err := json.Unmarshal([]byte(span), &loose); err == nil {
			reduced := map[string]any{"truncated": true}
			if s, present := loose["species"]; present {
				reduced["species"] = s
			}
			if s, present := loose["summary"]; present {
				reduced["summary"] = s
			}
			if out, err := json.Marshal(reduced); err == nil {
				return string(out)
			}
		}
	}

	return text[:p.maxLength] + "..."
}

// jsonSpan locates the outermost {...} span in text. It reports false when
// no plausible object span exists.
func jsonSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// asString coerces a loose JSON value to a string. Non-string scalars are
// formatted; objects, arrays, and nil collapse to "".
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

// asFloat coerces a loose JSON value to a float. Non-numeric values
// default to 0, including numeric-looking strings that fail to parse.
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// asStringSlice coerces a loose JSON value to a string slice. Absent or
// malformed values default to an empty (non-nil) slice.
func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := asString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// clamp01 bounds a confidence value to [0, 1].
func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
