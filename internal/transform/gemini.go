// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"
)

const (
	// DefaultEndpoint is the Gemini API base URL.
	DefaultEndpoint = "https://generativelanguage.googleapis.com"
	// DefaultModel is the model used for rewrites.
	DefaultModel = "gemini-2.5-flash-lite"
	// DefaultTemperature keeps rewrites close to deterministic.
	DefaultTemperature = 0.1
	// DefaultTimeout bounds a single generateContent call.
	DefaultTimeout = 2 * time.Minute

	apiVersion = "v1beta"
)

// ErrMissingAPIKey is returned when no API key was configured.
var ErrMissingAPIKey = errors.New("transformer API key is not set")

type (
	// APIError is returned when the service rejects a request.
	APIError struct {
		StatusCode int
		Status     string
		Message    string
	}

	// GeminiClient rewrites Dockerfiles through the Gemini generateContent API.
	GeminiClient struct {
		httpClient  *http.Client
		baseURL     string
		model       string
		apiKey      string
		temperature float64
		timeout     time.Duration
		logger      *log.Logger
	}

	// ClientOption configures a GeminiClient during construction.
	ClientOption func(*GeminiClient)
)

// Error formats the HTTP status and service message.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("transformer request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("transformer request failed with status %d (%s): %s", e.StatusCode, e.Status, e.Message)
}

// WithHTTPClient sets the HTTP client the SDK sends requests with.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *GeminiClient) {
		g.httpClient = c
	}
}

// WithBaseURL overrides the API base URL, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(g *GeminiClient) {
		if base != "" {
			g.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithModel selects the model.
func WithModel(model string) ClientOption {
	return func(g *GeminiClient) {
		if model != "" {
			g.model = model
		}
	}
}

// WithAPIKey sets the Gemini API key.
func WithAPIKey(key string) ClientOption {
	return func(g *GeminiClient) {
		g.apiKey = key
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ClientOption {
	return func(g *GeminiClient) {
		g.temperature = t
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) ClientOption {
	return func(g *GeminiClient) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *log.Logger) ClientOption {
	return func(g *GeminiClient) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGeminiClient creates a GeminiClient with the package defaults.
func NewGeminiClient(opts ...ClientOption) *GeminiClient {
	c := &GeminiClient{
		baseURL:     DefaultEndpoint,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		timeout:     DefaultTimeout,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *GeminiClient) sdkClient(ctx context.Context) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    c.baseURL,
			APIVersion: apiVersion,
		},
	})
}

// Transform sends req to the model and returns the rewritten Dockerfile with any
// surrounding code fence removed.
func (c *GeminiClient) Transform(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := c.sdkClient(reqCtx)
	if err != nil {
		return "", fmt.Errorf("creating transformer client: %w", err)
	}

	c.logger.Debug("requesting rewrite", "model", c.model, "retry", req.PriorError != "")

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: UserPrompt(req)}},
	}}
	resp, err := client.Models.GenerateContent(reqCtx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SystemPrompt}}},
		Temperature:       genai.Ptr(float32(c.temperature)),
	})
	if err != nil {
		return "", asAPIError(err)
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", fmt.Errorf("transformer blocked the prompt: %s", fb.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}

	out := StripCodeFence(sb.String())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// asAPIError converts the SDK's service error into an *APIError and wraps any
// other failure.
func asAPIError(err error) error {
	var val genai.APIError
	if errors.As(err, &val) {
		return &APIError{StatusCode: val.Code, Status: val.Status, Message: val.Message}
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return &APIError{StatusCode: ptr.Code, Status: ptr.Status, Message: ptr.Message}
	}
	return fmt.Errorf("calling transformer: %w", err)
}
