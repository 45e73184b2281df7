// Package openai provides an OpenAI-compatible chat completion client with
// streaming support. It works against any server speaking the OpenAI chat
// API, including a local LM Studio instance.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "google/gemma-3-4b"

	// DefaultAPIKey is the placeholder key local servers accept.
	DefaultAPIKey = "lm-studio"

	// DefaultTimeout bounds one HTTP exchange, including a full stream.
	DefaultTimeout = 120 * time.Second

	// DefaultTemperature is the sampling temperature when none is set.
	DefaultTemperature = 0.7

	// DefaultMaxOutputTokens caps the reply length when none is set.
	DefaultMaxOutputTokens = 1024
)

// retryPolicy is exponential backoff with a ceiling.
type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		attempts: 3,
		base:     100 * time.Millisecond,
		max:      10 * time.Second,
	}
}

// wait returns the delay before the given retry attempt (1-based).
func (p retryPolicy) wait(attempt int) time.Duration {
	d := p.base << (attempt - 1)
	if d <= 0 || d > p.max {
		return p.max
	}
	return d
}

// Config holds what the client needs to reach the endpoint.
type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	Timeout         time.Duration
	Temperature     float64
	MaxOutputTokens int
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	llm             *lcopenai.LLM
	model           string
	log             *slog.Logger
	temperature     float64
	maxOutputTokens int
	retry           retryPolicy
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithMaxRetries overrides how many times a failed request is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.retry.attempts = n
	}
}

// WithBackoff overrides the retry delay bounds.
func WithBackoff(base, max time.Duration) ClientOption {
	return func(c *Client) {
		c.retry.base = base
		c.retry.max = max
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient builds a client for the endpoint at cfg.BaseURL. Unset fields
// fall back to local-server defaults.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai: base URL is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.APIKey == "" {
		cfg.APIKey = DefaultAPIKey
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}

	llmClient, err := lcopenai.New(
		lcopenai.WithBaseURL(cfg.BaseURL),
		lcopenai.WithToken(cfg.APIKey),
		lcopenai.WithModel(cfg.Model),
		lcopenai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("openai: create client: %w", err)
	}

	c := &Client{
		llm:             llmClient,
		model:           cfg.Model,
		log:             slog.Default(),
		temperature:     cfg.Temperature,
		maxOutputTokens: cfg.MaxOutputTokens,
		retry:           defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Message is a single turn in a conversation.
type Message struct {
	Role    string
	Content string
}

// GenerateRequest describes one completion call.
type GenerateRequest struct {
	// Messages is the conversation so far. At least one is required.
	Messages []Message

	// Temperature overrides the client default when non-nil.
	Temperature *float64

	// MaxOutputTokens overrides the client default when non-nil.
	MaxOutputTokens *int
}

// GenerateResult is a finished completion.
type GenerateResult struct {
	Content string
	Model   string
}

// Generate produces a reply in one response.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	return c.generate(ctx, req, nil)
}

// GenerateStreaming produces a reply token by token, calling onToken for
// each delta. The assembled reply is returned once the stream completes.
func (c *Client) GenerateStreaming(ctx context.Context, req GenerateRequest, onToken func(string)) (*GenerateResult, error) {
	return c.generate(ctx, req, onToken)
}

func (c *Client) generate(ctx context.Context, req GenerateRequest, onToken func(string)) (*GenerateResult, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("openai: at least one message is required")
	}

	contents := toMessageContent(req.Messages)

	temperature := c.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := c.maxOutputTokens
	if req.MaxOutputTokens != nil {
		maxTokens = *req.MaxOutputTokens
	}

	callOpts := []llms.CallOption{
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	}

	var streamed strings.Builder
	if onToken != nil {
		callOpts = append(callOpts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) > 0 {
				streamed.Write(chunk)
				onToken(string(chunk))
			}
			return nil
		}))
	}

	// Streaming requests get a single attempt so tokens are never replayed;
	// failures before the first token still surface to the caller.
	retries := c.retry.attempts
	if onToken != nil {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := c.retry.wait(attempt)
			c.log.Debug("retrying chat call",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.llm.GenerateContent(ctx, contents, callOpts...)
		if err == nil {
			return c.buildResult(resp, &streamed), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		c.log.Warn("chat call failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}

	return nil, fmt.Errorf("openai: retries exhausted: %w", lastErr)
}

// buildResult extracts the reply, falling back to the streamed text when
// the response carries no content of its own.
func (c *Client) buildResult(resp *llms.ContentResponse, streamed *strings.Builder) *GenerateResult {
	var content string
	if resp != nil && len(resp.Choices) > 0 {
		content = resp.Choices[0].Content
	}
	if content == "" && streamed != nil {
		content = streamed.String()
	}
	return &GenerateResult{
		Content: strings.TrimSpace(content),
		Model:   c.model,
	}
}

// toMessageContent maps conversation roles onto langchaingo message types.
// Unknown roles are treated as the human side of the conversation.
func toMessageContent(messages []Message) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		var role llms.ChatMessageType
		switch msg.Role {
		case "system":
			role = llms.ChatMessageTypeSystem
		case "assistant":
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		result = append(result, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}
	return result
}

// IsAvailable reports whether the client holds a usable connection.
func (c *Client) IsAvailable() bool {
	return c.llm != nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}
