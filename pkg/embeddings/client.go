// Package embeddings turns text into vectors through a configured
// provider, or through a noop client when none is configured.
package embeddings

import (
	"context"
)

// Client is the provider contract. Queries and documents are distinct
// operations because some providers embed them asymmetrically.
type Client interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error)
}

// NoopClient answers every request with nil vectors. It stands in when
// embeddings are disabled so callers need no nil checks.
type NoopClient struct{}

func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

func (c *NoopClient) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return nil, nil
}

func (c *NoopClient) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	return nil, nil
}
