package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/stixgraph/stixgraph/domain/search"
	"github.com/stixgraph/stixgraph/pkg/llm"
)

// contextSeparator sits between entity blocks in the retrieved context.
const contextSeparator = "\n\n---\n\n"

// retrieveContext returns a text block of entities relevant to the query,
// used to ground the assistant reply. Retrieval is best-effort: an empty
// query, a disabled embeddings gateway, or any store failure yields an
// empty block rather than an error.
func (s *Service) retrieveContext(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if s.search == nil || query == "" {
		return ""
	}

	results, err := s.search.VectorOnly(ctx, query, s.ragTopK)
	if err != nil {
		s.log.Warn("context retrieval failed, continuing without context",
			slog.String("error", err.Error()),
		)
		return ""
	}
	return buildContextBlocks(results)
}

// buildContextBlocks formats each entity and joins the non-empty blocks
// with a visible separator.
func buildContextBlocks(results []search.Result) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		if block := formatContextEntry(r); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, contextSeparator)
}

// formatContextEntry renders one entity as labeled lines, skipping fields
// the entity does not carry.
func formatContextEntry(r search.Result) string {
	lines := make([]string, 0, 5)
	if r.Name != "" {
		lines = append(lines, "Name: "+r.Name)
	}
	if r.Type != "" {
		lines = append(lines, "Type: "+r.Type)
	}
	if r.ID != "" {
		lines = append(lines, "ID: "+r.ID)
	}
	if r.ShortName != "" {
		lines = append(lines, "Short name: "+r.ShortName)
	}
	if r.Description != "" {
		lines = append(lines, "Description: "+r.Description)
	}
	return strings.Join(lines, "\n")
}

// lastUserQuery returns the content of the most recent user turn that has
// any text, or "" when the history carries none.
func lastUserQuery(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llm.RoleUser {
			continue
		}
		if q := strings.TrimSpace(messages[i].Content); q != "" {
			return q
		}
	}
	return ""
}
