package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/uptrace/bun"

	"github.com/stixgraph/stixgraph/pkg/apperror"
	"github.com/stixgraph/stixgraph/pkg/logger"
	"github.com/stixgraph/stixgraph/pkg/pgutils"
)

// Repository runs search queries against the latest-entities cache
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new search repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("search.repo")),
	}
}

// TextSearch matches the query literally against entity names and
// descriptions. Prefix name hits rank above substring name hits, which
// rank above description hits.
func (r *Repository) TextSearch(ctx context.Context, query string, limit int) ([]Result, error) {
	pattern := escapeLike(query)
	prefix := pattern + "%"
	substring := "%" + pattern + "%"

	sql := `
		SELECT id, type, COALESCE(name, ''), COALESCE(description, ''), COALESCE(short_name, ''),
			   CASE
				   WHEN name ILIKE ? THEN 3
				   WHEN name ILIKE ? THEN 2
				   ELSE 1
			   END AS tier
		FROM intel.entities
		WHERE name ILIKE ? OR description ILIKE ?
		ORDER BY tier DESC, name ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, sql, prefix, substring, substring, substring, limit)
	if err != nil {
		r.log.Error("text search failed", logger.Error(err))
		return nil, apperror.ErrStoreUnavailable.WithInternal(err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var result Result
		if err := rows.Scan(
			&result.ID,
			&result.Type,
			&result.Name,
			&result.Description,
			&result.ShortName,
			&result.Score,
		); err != nil {
			r.log.Error("text search row scan failed", logger.Error(err))
			return nil, apperror.ErrStoreUnavailable.WithInternal(err)
		}
		result.Match = MatchText
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, apperror.ErrStoreUnavailable.WithInternal(err)
	}

	return results, nil
}

// VectorSearch ranks entities by cosine similarity to the query embedding.
// Relationship rows are cached for document fidelity but are noise as
// search hits, so they are excluded here.
func (r *Repository) VectorSearch(ctx context.Context, vector []float32, limit int) ([]Result, error) {
	if len(vector) == 0 {
		return nil, apperror.ErrBadRequest.WithMessage("vector required for vector search")
	}

	vectorStr := pgutils.FormatVector(vector)

	// Cosine distance: lower is better, convert to similarity score (1 - distance)
	sql := `
		SELECT id, type, COALESCE(name, ''), COALESCE(description, ''), COALESCE(short_name, ''),
			   (1 - (embedding <=> ?::vector)) AS score
		FROM intel.entities
		WHERE embedding IS NOT NULL
		  AND type <> 'relationship'
		ORDER BY embedding <=> ?::vector
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, sql, vectorStr, vectorStr, limit)
	if err != nil {
		r.log.Error("vector search failed", logger.Error(err))
		return nil, apperror.ErrStoreUnavailable.WithInternal(err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var result Result
		if err := rows.Scan(
			&result.ID,
			&result.Type,
			&result.Name,
			&result.Description,
			&result.ShortName,
			&result.Score,
		); err != nil {
			r.log.Error("vector search row scan failed", logger.Error(err))
			return nil, apperror.ErrStoreUnavailable.WithInternal(err)
		}
		result.Match = MatchVector
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, apperror.ErrStoreUnavailable.WithInternal(err)
	}

	return results, nil
}

// escapeLike escapes ILIKE wildcards so user queries match literally
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
