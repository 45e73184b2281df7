// Package migrate applies the embedded goose migrations on startup.
package migrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/stixgraph/stixgraph/migrations"
	"github.com/stixgraph/stixgraph/pkg/logger"
)

// Module runs pending migrations before the HTTP server begins accepting
// traffic, so handlers never see a stale schema.
var Module = fx.Module("migrate",
	fx.Provide(NewMigrator),
	fx.Invoke(registerMigrationLifecycle),
)

func registerMigrationLifecycle(lc fx.Lifecycle, m *Migrator) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return m.Up(ctx)
		},
	})
}

// Migrator drives goose over the embedded migration files.
type Migrator struct {
	db  *bun.DB
	log *slog.Logger
}

func NewMigrator(db *bun.DB, log *slog.Logger) *Migrator {
	return &Migrator{
		db:  db,
		log: log.With(logger.Scope("migrate")),
	}
}

// Up applies every pending migration in order.
func (m *Migrator) Up(ctx context.Context) error {
	m.log.Info("running database migrations")

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, m.db.DB, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	m.log.Info("migrations up to date")
	return nil
}
