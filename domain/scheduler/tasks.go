package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/stixgraph/stixgraph/domain/graph"
	"github.com/stixgraph/stixgraph/pkg/apperror"
	"github.com/stixgraph/stixgraph/pkg/logger"
)

// Resyncer rebuilds the graph projection from the current bundle.
// Satisfied by the graph service.
type Resyncer interface {
	Resync(ctx context.Context) (*graph.SyncStats, error)
}

// GraphResyncTask periodically rebuilds the graph projection, healing any
// sync that failed after a document write.
type GraphResyncTask struct {
	graph Resyncer
	log   *slog.Logger
}

// NewGraphResyncTask creates a new graph resync task
func NewGraphResyncTask(g Resyncer, log *slog.Logger) *GraphResyncTask {
	return &GraphResyncTask{
		graph: g,
		log:   log.With(logger.Scope("scheduler.graph_resync")),
	}
}

// Run executes the graph resync
func (t *GraphResyncTask) Run(ctx context.Context) error {
	start := time.Now()
	t.log.Debug("rebuilding graph projection")

	stats, err := t.graph.Resync(ctx)
	if err != nil {
		// An empty document store is normal before the first load
		if errors.Is(err, apperror.ErrNotFound) {
			t.log.Debug("no bundle loaded, skipping graph resync")
			return nil
		}
		t.log.Error("graph resync failed",
			slog.String("error", err.Error()))
		return err
	}

	t.log.Info("graph projection rebuilt",
		slog.String("version", stats.Version),
		slog.Int("nodes", stats.Nodes),
		slog.Int("edges", stats.Edges),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Backfiller embeds entities still missing vectors.
// Satisfied by the bundles service.
type Backfiller interface {
	BackfillEmbeddings(ctx context.Context) (int, error)
}

// EmbeddingBackfillTask embeds entity rows whose vectors are still missing,
// healing ingests that wrote without vectors while the gateway was down.
type EmbeddingBackfillTask struct {
	bundles Backfiller
	log     *slog.Logger
}

// NewEmbeddingBackfillTask creates a new embedding backfill task
func NewEmbeddingBackfillTask(b Backfiller, log *slog.Logger) *EmbeddingBackfillTask {
	return &EmbeddingBackfillTask{
		bundles: b,
		log:     log.With(logger.Scope("scheduler.embedding_backfill")),
	}
}

// Run executes the embedding backfill
func (t *EmbeddingBackfillTask) Run(ctx context.Context) error {
	start := time.Now()
	t.log.Debug("backfilling entity embeddings")

	count, err := t.bundles.BackfillEmbeddings(ctx)
	if err != nil {
		t.log.Error("embedding backfill failed",
			slog.String("error", err.Error()))
		return err
	}

	if count > 0 {
		t.log.Info("backfilled entity embeddings",
			slog.Int("count", count),
			slog.Duration("duration", time.Since(start)))
	} else {
		t.log.Debug("no entities missing embeddings",
			slog.Duration("duration", time.Since(start)))
	}

	return nil
}
