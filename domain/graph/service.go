package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/stixgraph/stixgraph/domain/bundles"
	"github.com/stixgraph/stixgraph/domain/stix"
	"github.com/stixgraph/stixgraph/pkg/apperror"
	"github.com/stixgraph/stixgraph/pkg/logger"
	"github.com/stixgraph/stixgraph/pkg/tracing"
)

// Service orchestrates projection rebuilds and serves graph reads. It
// satisfies bundles.Syncer so every successful document write triggers a
// rebuild.
type Service struct {
	store   *Store
	bundles *bundles.Repository
	log     *slog.Logger
}

// NewService creates a new graph service
func NewService(store *Store, bundlesRepo *bundles.Repository, log *slog.Logger) *Service {
	return &Service{
		store:   store,
		bundles: bundlesRepo,
		log:     log.With(logger.Scope("graph.svc")),
	}
}

// Sync rebuilds the projection from the given bundle. Each run gets a
// correlation id so the log lines of concurrent rebuilds stay separable.
func (s *Service) Sync(ctx context.Context, bundle *stix.Bundle) error {
	syncID := uuid.New().String()
	start := time.Now()

	ctx, span := tracing.Start(ctx, "graph.sync",
		attribute.String("stixgraph.sync.id", syncID),
		attribute.Int("stixgraph.bundle.objects", len(bundle.Objects)),
	)
	defer span.End()

	SyncsTotal.Inc()
	stats, err := s.store.Rebuild(ctx, bundle)
	if err != nil {
		SyncFailuresTotal.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("graph sync failed",
			slog.String("sync_id", syncID),
			logger.Error(err),
		)
		return err
	}

	s.log.Info("graph sync complete",
		slog.String("sync_id", syncID),
		slog.Int("nodes", stats.Nodes),
		slog.Int("edges", stats.Edges),
		slog.Int("skipped_edges", stats.SkippedEdges),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// Resync reloads the current bundle from the document store and rebuilds
// the projection from it. Heals drift left behind by failed best-effort
// syncs.
func (s *Service) Resync(ctx context.Context) (*SyncStats, error) {
	ctx, span := tracing.Start(ctx, "graph.resync")
	defer span.End()

	row, err := s.bundles.GetCurrentBundle(ctx)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperror.ErrNotFound.WithMessage("No bundle data loaded yet")
	}

	bundle, err := stix.ParseBundle(row.Document)
	if err != nil {
		return nil, apperror.NewInternal("stored bundle failed to parse", err)
	}
	span.SetAttributes(
		attribute.String("stixgraph.bundle.version", row.Version),
		attribute.Int("stixgraph.bundle.objects", len(bundle.Objects)),
	)

	start := time.Now()
	SyncsTotal.Inc()
	stats, err := s.store.Rebuild(ctx, bundle)
	if err != nil {
		SyncFailuresTotal.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.log.Info("graph resync complete",
		slog.String("version", row.Version),
		slog.Int("nodes", stats.Nodes),
		slog.Int("edges", stats.Edges),
	)

	return &SyncStats{
		Version:      row.Version,
		Nodes:        stats.Nodes,
		Edges:        stats.Edges,
		SkippedEdges: stats.SkippedEdges,
		DurationMS:   time.Since(start).Milliseconds(),
	}, nil
}

// Adjacent returns a node and its one-hop neighborhood. A node that is not
// in the projection yields a 404-class error; a down graph store yields a
// 503-class one, never conflated.
func (s *Service) Adjacent(ctx context.Context, stixID string) (*Adjacency, error) {
	adjacency, err := s.store.Adjacent(ctx, stixID)
	if err != nil {
		return nil, err
	}
	if adjacency == nil {
		return nil, apperror.ErrNotFound.WithMessage(
			fmt.Sprintf("No node found with stix_id '%s'", stixID),
		)
	}
	return adjacency, nil
}

// EdgesTouching returns every edge where the node is either endpoint. A
// node with no edges, or one absent from the projection, yields an empty
// list.
func (s *Service) EdgesTouching(ctx context.Context, stixID string) ([]EdgeTriple, error) {
	return s.store.EdgesTouching(ctx, stixID)
}

// Ping reports whether the graph store is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
