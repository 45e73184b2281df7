// Package genai embeds text through the Google Generative AI API.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = "text-embedding-004"

	// DefaultDimension is the vector width of text-embedding-004.
	DefaultDimension = 768

	// maxBatch bounds how many texts share one retry scope. The API is
	// called once per text either way; the bound keeps a single failure
	// from re-embedding an entire corpus.
	maxBatch = 100
)

// Task types the API distinguishes for retrieval workloads. Queries and
// stored documents are embedded into the same space but from different
// sides of it.
const (
	taskQuery    = "RETRIEVAL_QUERY"
	taskDocument = "RETRIEVAL_DOCUMENT"
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

// Config holds what the client needs to talk to the API.
type Config struct {
	APIKey string
	Model  string
}

// Client generates embeddings via the Gemini API backend.
type Client struct {
	api   *genai.Client
	model string
	log   *slog.Logger
	retry retryPolicy
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

// NewClient connects to the Generative AI API with the given key.
func NewClient(ctx context.Context, cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}

	c := &Client{
		api:   api,
		model: cfg.Model,
		log:   slog.Default(),
		retry: defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// EmbedQuery embeds a single search query.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.embedRetrying(ctx, []string{query}, taskQuery)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("genai: empty response for query")
	}
	return vectors[0], nil
}

// EmbedDocuments embeds stored texts, preserving input order.
func (c *Client) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	if len(documents) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(documents))
	for start := 0; start < len(documents); start += maxBatch {
		end := min(start+maxBatch, len(documents))

		vectors, err := c.embedRetrying(ctx, documents[start:end], taskDocument)
		if err != nil {
			return nil, fmt.Errorf("genai: documents %d-%d: %w", start, end, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// embedRetrying runs one batch through the API, retrying transient
// failures. Context cancellation ends the loop immediately.
func (c *Client) embedRetrying(ctx context.Context, texts []string, task string) ([][]float32, error) {
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

		vectors, err := c.embedOnce(ctx, texts, task)
		if err == nil {
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

	return nil, fmt.Errorf("genai: retries exhausted: %w", lastErr)
}

// embedOnce embeds each text with one API call apiece. EmbedContent takes
// a single content, so a batch is a loop.
func (c *Client) embedOnce(ctx context.Context, texts []string, task string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		resp, err := c.api.Models.EmbedContent(ctx, c.model, genai.Text(text), &genai.EmbedContentConfig{
			TaskType: task,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding in response")
		}
		vectors = append(vectors, resp.Embeddings[0].Values)
	}
	return vectors, nil
}
