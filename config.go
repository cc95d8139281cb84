package wildlens

import "time"

// Config holds the per-call request configuration. A Config value is
// immutable once snapshotted for a call; updates via ConfigUpdate take
// effect on the next call only, never mid-flight.
type Config struct {
	BaseURL     string        // API endpoint base, e.g. "https://api.openai.com/v1"
	APIKey      string        // Bearer credential
	Model       string        // Model identifier
	MaxTokens   int           // Maximum completion tokens per request
	Temperature float32       // Sampling temperature
	Timeout     time.Duration // Per-request transport timeout
}

// DefaultConfig returns the configuration used when the caller supplies
// nothing beyond a credential.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4o",
		MaxTokens:   1024,
		Temperature: 0.2,
		Timeout:     30 * time.Second,
	}
}

// ConfigUpdate is a partial configuration. Nil fields are left unchanged
// when merged into a Config.
type ConfigUpdate struct {
	BaseURL     *string
	APIKey      *string
	Model       *string
	MaxTokens   *int
	Temperature *float32
	Timeout     *time.Duration
}

// Apply merges the update into the config and returns the result.
func (c Config) Apply(u ConfigUpdate) Config {
	if u.BaseURL != nil {
		c.BaseURL = *u.BaseURL
	}
	if u.APIKey != nil {
		c.APIKey = *u.APIKey
	}
	if u.Model != nil {
		c.Model = *u.Model
	}
	if u.MaxTokens != nil {
		c.MaxTokens = *u.MaxTokens
	}
	if u.Temperature != nil {
		c.Temperature = *u.Temperature
	}
	if u.Timeout != nil {
		c.Timeout = *u.Timeout
	}
	return c
}
