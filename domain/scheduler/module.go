package scheduler

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/stixgraph/stixgraph/domain/bundles"
	"github.com/stixgraph/stixgraph/domain/graph"
)

// Module provides the background task scheduler.
var Module = fx.Module("scheduler",
	fx.Provide(
		NewConfig,
		NewScheduler,
	),
	fx.Invoke(
		RegisterTasks,
		RegisterSchedulerLifecycle,
	),
)

// TaskParams collects everything the scheduled tasks depend on.
type TaskParams struct {
	fx.In
	Scheduler *Scheduler
	Graph     *graph.Service
	Bundles   *bundles.Service
	Log       *slog.Logger
	Cfg       *Config
}

// RegisterTasks wires the periodic jobs into the scheduler. A task that
// fails to register is logged and skipped; the rest still run.
func RegisterTasks(p TaskParams) error {
	if !p.Cfg.Enabled {
		p.Log.Info("scheduler disabled, no background tasks will run")
		return nil
	}

	resync := NewGraphResyncTask(p.Graph, p.Log)
	backfill := NewEmbeddingBackfillTask(p.Bundles, p.Log)

	jobs := []struct {
		name     string
		schedule string
		interval time.Duration
		run      TaskFunc
	}{
		{"graph_resync", p.Cfg.GraphResyncSchedule, p.Cfg.GraphResyncInterval, resync.Run},
		{"embedding_backfill", p.Cfg.EmbeddingBackfillSchedule, p.Cfg.EmbeddingBackfillInterval, backfill.Run},
	}

	for _, j := range jobs {
		if err := addScheduledTask(p.Scheduler, j.name, j.schedule, j.interval, j.run); err != nil {
			p.Log.Error("failed to register task",
				slog.String("task", j.name),
				slog.String("error", err.Error()))
		}
	}

	p.Log.Info("background tasks registered",
		slog.Any("tasks", p.Scheduler.ListTasks()))

	return nil
}

// addScheduledTask prefers the cron expression when one is set, falling
// back to the fixed interval otherwise.
func addScheduledTask(s *Scheduler, name, schedule string, interval time.Duration, task TaskFunc) error {
	if schedule != "" {
		return s.AddCronTask(name, schedule, task)
	}
	return s.AddIntervalTask(name, interval, task)
}

// RegisterSchedulerLifecycle starts and stops the scheduler with the app.
func RegisterSchedulerLifecycle(lc fx.Lifecycle, scheduler *Scheduler, cfg *Config) {
	if !cfg.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return scheduler.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return scheduler.Stop(ctx)
		},
	})
}
