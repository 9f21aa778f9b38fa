// Package llm is the boundary to the external text-completion service:
// one blocking request with a model identifier, a prompt, and a
// temperature, returning a text blob or an error. Retry and backoff are
// deliberately not implemented here; each invocation is single-shot.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/meridianlab/listingintel/internal/metrics"
)

// Supported provider keys.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// ErrEmptyCompletion is returned when the service answers successfully
// but with no text content.
var ErrEmptyCompletion = errors.New("completion service returned no content")

// Request is a single completion call.
type Request struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	Prompt      string
}

// Client issues one blocking completion call.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// HTTPClient talks to provider chat endpoints over HTTP.
type HTTPClient struct {
	httpClient *http.Client
	logger     *zap.Logger

	// baseURLs overrides the provider endpoints, used in tests and for
	// gateway deployments.
	baseURLs map[string]string
}

var defaultBaseURLs = map[string]string{
	ProviderOpenAI:    "https://api.openai.com",
	ProviderAnthropic: "https://api.anthropic.com",
	ProviderGoogle:    "https://generativelanguage.googleapis.com",
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithBaseURL overrides the endpoint for one provider.
func WithBaseURL(provider, base string) Option {
	return func(c *HTTPClient) { c.baseURLs[provider] = base }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

// NewHTTPClient constructs a provider-aware completion client.
func NewHTTPClient(logger *zap.Logger, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
		baseURLs:   make(map[string]string),
	}
	for k, v := range defaultBaseURLs {
		c.baseURLs[k] = v
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete issues the call and extracts the text content for the
// request's provider. Non-2xx responses become errors carrying the
// status and a truncated body.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (string, error) {
	base, ok := c.baseURLs[req.Provider]
	if !ok {
		return "", fmt.Errorf("unsupported provider %q", req.Provider)
	}

	var (
		text string
		err  error
	)
	start := time.Now()
	switch req.Provider {
	case ProviderAnthropic:
		text, err = c.completeAnthropic(ctx, base, req)
	case ProviderGoogle:
		text, err = c.completeGoogle(ctx, base, req)
	default:
		text, err = c.completeOpenAI(ctx, base, req)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.CompletionRequests.WithLabelValues(req.Provider, outcome).Inc()
	c.logger.Debug("Completion call finished",
		zap.String("provider", req.Provider),
		zap.String("model", req.Model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("ok", err == nil),
	)
	return text, err
}

func (c *HTTPClient) completeOpenAI(ctx context.Context, base string, req Request) (string, error) {
	body := map[string]any{
		"model":       req.Model,
		"temperature": req.Temperature,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	headers := map[string]string{"Authorization": "Bearer " + req.APIKey}
	if err := c.post(ctx, base+"/v1/chat/completions", headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

func (c *HTTPClient) completeAnthropic(ctx context.Context, base string, req Request) (string, error) {
	body := map[string]any{
		"model":       req.Model,
		"temperature": req.Temperature,
		"max_tokens":  8192,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}
	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	headers := map[string]string{
		"x-api-key":         req.APIKey,
		"anthropic-version": "2023-06-01",
	}
	if err := c.post(ctx, base+"/v1/messages", headers, body, &out); err != nil {
		return "", err
	}
	for _, block := range out.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", ErrEmptyCompletion
}

func (c *HTTPClient) completeGoogle(ctx context.Context, base string, req Request) (string, error) {
	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": req.Prompt}}},
		},
		"generationConfig": map[string]any{"temperature": req.Temperature},
	}
	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", base, req.Model, req.APIKey)
	if err := c.post(ctx, url, nil, body, &out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyCompletion
	}
	text := out.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (c *HTTPClient) post(ctx context.Context, url string, headers map[string]string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("completion service returned %d: %s", resp.StatusCode, truncate(string(respBody), 300))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
