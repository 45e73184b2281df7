package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/stixgraph/stixgraph/pkg/apperror"
	"github.com/stixgraph/stixgraph/pkg/embeddings"
	"github.com/stixgraph/stixgraph/pkg/logger"
	"github.com/stixgraph/stixgraph/pkg/mathutil"
)

// Top-k bounds for search requests.
const (
	DefaultTopK = 10
	MaxTopK     = 100
)

// Service combines literal text matching with embedding similarity over the
// latest-entities cache
type Service struct {
	repo     *Repository
	embedder *embeddings.Service
	log      *slog.Logger
}

// NewService creates a new search service
func NewService(repo *Repository, embedder *embeddings.Service, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		embedder: embedder,
		log:      log.With(logger.Scope("search.svc")),
	}
}

type legResult struct {
	results []Result
	err     error
}

// Search runs the text and vector legs in parallel and merges them: text
// hits first in their own order, then vector hits fill the remaining slots,
// deduplicated by entity id.
func (s *Service) Search(ctx context.Context, query string, topK int) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.NewBadRequest("Query string is required and must be non-empty")
	}
	limit := mathutil.ClampLimit(topK, DefaultTopK, MaxTopK)

	textCh := make(chan legResult, 1)
	vectorCh := make(chan legResult, 1)

	go func() {
		results, err := s.repo.TextSearch(ctx, query, limit)
		textCh <- legResult{results: results, err: err}
	}()
	go func() {
		results, err := s.vectorLeg(ctx, query, limit)
		vectorCh <- legResult{results: results, err: err}
	}()

	text := <-textCh
	vector := <-vectorCh

	if text.err != nil {
		return nil, text.err
	}
	if vector.err != nil {
		// The text leg answered, so degrade to text-only instead of
		// failing the request.
		s.log.Warn("vector search leg failed, returning text-only results",
			logger.Error(vector.err),
		)
		vector.results = nil
	}

	return &Response{
		Query:   query,
		Results: mergeResults(text.results, vector.results, limit),
	}, nil
}

// VectorOnly ranks entities by embedding similarity alone. An unconfigured
// embeddings gateway yields empty results, not an error.
func (s *Service) VectorOnly(ctx context.Context, query string, topK int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.NewBadRequest("Query string is required and must be non-empty")
	}
	limit := mathutil.ClampLimit(topK, DefaultTopK, MaxTopK)

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return []Result{}, nil
	}

	return s.repo.VectorSearch(ctx, vector, limit)
}

// vectorLeg embeds the query and runs the similarity search. A disabled
// gateway or an empty embedding contributes nothing.
func (s *Service) vectorLeg(ctx context.Context, query string, limit int) ([]Result, error) {
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, nil
	}
	return s.repo.VectorSearch(ctx, vector, limit)
}

// mergeResults keeps all text hits in order, then fills the remaining
// slots with vector hits, skipping ids already present
func mergeResults(text, vector []Result, limit int) []Result {
	merged := make([]Result, 0, limit)
	seen := make(map[string]struct{}, limit)

	for _, result := range text {
		if len(merged) >= limit {
			break
		}
		if _, ok := seen[result.ID]; ok {
			continue
		}
		seen[result.ID] = struct{}{}
		merged = append(merged, result)
	}
	for _, result := range vector {
		if len(merged) >= limit {
			break
		}
		if _, ok := seen[result.ID]; ok {
			continue
		}
		seen[result.ID] = struct{}{}
		merged = append(merged, result)
	}

	return merged
}
