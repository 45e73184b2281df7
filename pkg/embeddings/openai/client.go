// Package openai provides an OpenAI-compatible embeddings client. It works
// against any server speaking the OpenAI embeddings API, including a local
// LM Studio instance serving nomic-embed.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/stixgraph/stixgraph/pkg/mathutil"
)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = "text-embedding-nomic-embed-text-v1.5"

	// DefaultAPIKey is the placeholder key local servers accept.
	DefaultAPIKey = "lm-studio"

	// DefaultBatchSize is the per-request batch when none is configured.
	DefaultBatchSize = 100

	// MaxBatchSize is the largest input array the embeddings API accepts.
	MaxBatchSize = 2048
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
	BaseURL   string
	APIKey    string
	Model     string
	BatchSize int
}

// Client generates embeddings through an OpenAI-compatible endpoint.
type Client struct {
	llm       *lcopenai.LLM
	model     string
	batchSize int
	log       *slog.Logger
	retry     retryPolicy
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

// NewClient builds a client for the endpoint at cfg.BaseURL. Model and
// API key fall back to local-server defaults when unset.
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

	llm, err := lcopenai.New(
		lcopenai.WithBaseURL(cfg.BaseURL),
		lcopenai.WithToken(cfg.APIKey),
		lcopenai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("openai: create client: %w", err)
	}

	c := &Client{
		llm:       llm,
		model:     cfg.Model,
		batchSize: mathutil.ClampLimit(cfg.BatchSize, DefaultBatchSize, MaxBatchSize),
		log:       slog.Default(),
		retry:     defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// EmbedQuery embeds a single search query.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.embedRetrying(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("openai: empty response for query")
	}
	return vectors[0], nil
}

// EmbedDocuments embeds stored texts in input order, splitting the work
// into batches the endpoint accepts.
func (c *Client) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(documents))
	for start := 0; start < len(documents); start += c.batchSize {
		end := min(start+c.batchSize, len(documents))

		vectors, err := c.embedRetrying(ctx, documents[start:end])
		if err != nil {
			return nil, fmt.Errorf("openai: documents %d-%d: %w", start, end, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// embedRetrying runs one batch through the endpoint, retrying transient
// failures. Context cancellation ends the loop immediately.
func (c *Client) embedRetrying(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retry.attempts; attempt++ {
		if attempt > 0 {
			delay := c.retry.wait(attempt)
			c.log.Debug("retrying embed call",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		vectors, err := c.llm.CreateEmbedding(ctx, texts)
		if err == nil {
			if len(vectors) != len(texts) {
				return nil, fmt.Errorf("openai: got %d embeddings for %d inputs", len(vectors), len(texts))
			}
			return vectors, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		c.log.Warn("embed call failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}

	return nil, fmt.Errorf("openai: retries exhausted: %w", lastErr)
}
