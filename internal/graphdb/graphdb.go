// Package graphdb provides the Neo4j driver used by the graph projection.
package graphdb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/fx"

	"github.com/stixgraph/stixgraph/internal/config"
	"github.com/stixgraph/stixgraph/pkg/logger"
)

var Module = fx.Module("graphdb",
	fx.Provide(NewDriver),
)

// NewDriver creates the Neo4j driver and verifies connectivity. A failed
// connectivity check does not abort startup: the graph is a derived,
// rebuildable view, and the document store must stay writable while the
// graph backend is down. Reads and syncs degrade until it comes back.
func NewDriver(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) (neo4j.DriverWithContext, error) {
	log = log.With(logger.Scope("graphdb"))

	driver, err := neo4j.NewDriverWithContext(
		cfg.Graph.URI,
		neo4j.BasicAuth(cfg.Graph.User, cfg.Graph.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Graph.ConnectTimeout)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Warn("neo4j connectivity check failed, graph store degraded",
			slog.String("uri", cfg.Graph.URI),
			logger.Error(err),
		)
	} else {
		log.Info("neo4j connected", slog.String("uri", cfg.Graph.URI))
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("closing neo4j driver")
			return driver.Close(ctx)
		},
	})

	return driver, nil
}
