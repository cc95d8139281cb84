// Package openai implements the wildlens transport client for the OpenAI
// chat completions API with vision input.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/zoobzio/capitan"

	"github.com/wildlens/wildlens"
)

// Client performs one HTTP call per invocation to the configured endpoint
// and classifies every transport and HTTP failure into a typed
// *wildlens.Error. It never retries internally.
type Client struct {
	mu      sync.RWMutex
	apiKey  string
	baseURL string
	timeout time.Duration

	httpClient *http.Client
	name       string
}

// Config holds connection settings for the OpenAI transport.
type Config struct {
	APIKey  string
	BaseURL string        // Optional, defaults to "https://api.openai.com/v1"
	Timeout time.Duration // Optional, defaults to 30s
}

// New creates a new OpenAI transport client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		timeout: config.Timeout,
		name:    "openai",
		// Timeouts ride on the per-request context so UpdateConfig can
		// change them between calls without rebuilding the client.
		httpClient: &http.Client{},
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return c.name
}

// UpdateConfig replaces endpoint, credential, and timeout for subsequent
// calls only; requests already in flight are unaffected.
func (c *Client) UpdateConfig(update wildlens.ConfigUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if update.BaseURL != nil {
		c.baseURL = *update.BaseURL
	}
	if update.APIKey != nil {
		c.apiKey = *update.APIKey
	}
	if update.Timeout != nil {
		c.timeout = *update.Timeout
	}
}

// Call sends one identification request and returns the raw model
// response. Any non-2xx status or network failure comes back as a
// classified *wildlens.Error.
func (c *Client) Call(ctx context.Context, req *wildlens.ModelRequest) (*wildlens.ModelResponse, error) {
	c.mu.RLock()
	apiKey, baseURL, timeout := c.apiKey, c.baseURL, c.timeout
	c.mu.RUnlock()

	startTime := time.Now()

	capitan.Emit(ctx, wildlens.ProviderCallStarted,
		wildlens.ProviderKey.Field(c.name),
		wildlens.ModelKey.Field(req.Model),
	)

	content := []contentPart{
		{Type: "text", Text: req.Prompt},
	}
	if req.ImagePayload != "" {
		content = append(content, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: req.ImagePayload, Detail: "high"},
		})
	}

	requestBody := chatCompletionRequest{
		Model:       req.Model,
		Messages:    []message{{Role: "user", Content: content}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, wildlens.NewValidationError(fmt.Sprintf("failed to marshal request: %v", err), "")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, wildlens.NewValidationError(fmt.Sprintf("failed to create request: %v", err), "")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.httpClient.Do(httpReq.WithContext(callCtx))
	if err != nil {
		cerr := classifyTransportFailure(err)
		c.emitFailure(ctx, req.Model, 0, time.Since(startTime), cerr)
		return nil, cerr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		cerr := wildlens.NewNetworkError("failed to read response body", err)
		c.emitFailure(ctx, req.Model, resp.StatusCode, time.Since(startTime), cerr)
		return nil, cerr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cerr := classifyStatus(resp.StatusCode, body, resp.Header)
		c.emitFailure(ctx, req.Model, resp.StatusCode, time.Since(startTime), cerr)
		return nil, cerr
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		cerr := wildlens.NewProcessingError("failed to parse completion response", err)
		c.emitFailure(ctx, req.Model, resp.StatusCode, time.Since(startTime), cerr)
		return nil, cerr
	}

	result := &wildlens.ModelResponse{
		Usage: wildlens.TokenUsage{
			Prompt:     completion.Usage.PromptTokens,
			Completion: completion.Usage.CompletionTokens,
			Total:      completion.Usage.TotalTokens,
		},
	}
	for _, choice := range completion.Choices {
		result.Candidates = append(result.Candidates, wildlens.Candidate{
			Text:         choice.Message.Content,
			FinishReason: choice.FinishReason,
		})
	}

	fields := []capitan.Field{
		wildlens.ProviderKey.Field(c.name),
		wildlens.ModelKey.Field(completion.Model),
		wildlens.HTTPStatusCodeKey.Field(resp.StatusCode),
		wildlens.DurationMsKey.Field(int(time.Since(startTime).Milliseconds())),
		wildlens.PromptTokensKey.Field(completion.Usage.PromptTokens),
		wildlens.CompletionTokensKey.Field(completion.Usage.CompletionTokens),
		wildlens.TotalTokensKey.Field(completion.Usage.TotalTokens),
	}
	if len(completion.Choices) > 0 && completion.Choices[0].FinishReason != "" {
		fields = append(fields, wildlens.FinishReasonKey.Field(completion.Choices[0].FinishReason))
	}
	capitan.Emit(ctx, wildlens.ProviderCallCompleted, fields...)

	return result, nil
}

func (c *Client) emitFailure(ctx context.Context, model string, status int, duration time.Duration, cerr *wildlens.Error) {
	capitan.Emit(ctx, wildlens.ProviderCallFailed,
		wildlens.ProviderKey.Field(c.name),
		wildlens.ModelKey.Field(model),
		wildlens.HTTPStatusCodeKey.Field(status),
		wildlens.DurationMsKey.Field(int(duration.Milliseconds())),
		wildlens.ErrorKey.Field(cerr.Error()),
		wildlens.ErrorKindKey.Field(string(cerr.Kind)),
	)
}

// Request/Response types for the OpenAI API.

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature"`
}

type responseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type choice struct {
	Index        int             `json:"index"`
	Message      responseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   usage    `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// apiErrorMessage extracts the API's own error message from a failure
// body, falling back to the bare status.
func apiErrorMessage(status int, body []byte) (msg, code string) {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		code = errResp.Error.Code
		if code == "" {
			code = strconv.Itoa(status)
		}
		return errResp.Error.Message, code
	}
	return fmt.Sprintf("openai error: status %d", status), strconv.Itoa(status)
}
