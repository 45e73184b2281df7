// Package main provides the entry point for the stixgraph API server.
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/stixgraph/stixgraph/domain/bundles"
	"github.com/stixgraph/stixgraph/domain/chat"
	"github.com/stixgraph/stixgraph/domain/graph"
	"github.com/stixgraph/stixgraph/domain/health"
	"github.com/stixgraph/stixgraph/domain/scheduler"
	"github.com/stixgraph/stixgraph/domain/search"
	"github.com/stixgraph/stixgraph/domain/tracing"
	"github.com/stixgraph/stixgraph/internal/config"
	"github.com/stixgraph/stixgraph/internal/database"
	"github.com/stixgraph/stixgraph/internal/graphdb"
	"github.com/stixgraph/stixgraph/internal/migrate"
	"github.com/stixgraph/stixgraph/internal/server"
	"github.com/stixgraph/stixgraph/internal/storage"
	"github.com/stixgraph/stixgraph/pkg/embeddings"
	"github.com/stixgraph/stixgraph/pkg/llm"
	"github.com/stixgraph/stixgraph/pkg/logger"
)

func main() {
	// Local development reads .env, with .env.local taking precedence.
	// Overload overwrites already-set variables; plain Load does not.
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure. Migrations register before the server so the
		// schema is in place before requests are served.
		logger.Module,
		config.Module,
		database.Module,
		graphdb.Module,
		migrate.Module,
		server.Module,
		storage.Module,

		// Provider gateways, no-op when unconfigured.
		embeddings.Module,
		llm.Module,

		// Tracing, no-op without an OTLP endpoint.
		tracing.Module,

		// Domains.
		health.Module,
		bundles.Module,
		graph.Module,
		search.Module,
		chat.Module,

		// Background tasks.
		scheduler.Module,
	).Run()
}
