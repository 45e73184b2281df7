package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stixgraph/stixgraph/pkg/logger"
)

// Scheduler runs named background tasks on cron expressions or fixed
// intervals. Registration is idempotent per name: re-adding replaces the
// previous schedule.
type Scheduler struct {
	cron        *cron.Cron
	log         *slog.Logger
	tasks       map[string]cron.EntryID
	taskTimeout time.Duration
	mu          sync.RWMutex
	running     bool
}

// TaskFunc is one scheduled unit of work. The context carries the task
// timeout; work must stop when it is done.
type TaskFunc func(ctx context.Context) error

// NewScheduler creates a scheduler with seconds-precision cron parsing.
func NewScheduler(cfg *Config, log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithSeconds()),
		log:         log.With(logger.Scope("scheduler")),
		tasks:       make(map[string]cron.EntryID),
		taskTimeout: time.Duration(cfg.TaskTimeoutMinutes) * time.Minute,
	}
}

// Start begins firing registered tasks. Starting twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.cron.Start()
	s.running = true
	s.log.Info("scheduler running", slog.Int("tasks", len(s.tasks)))
	return nil
}

// Stop waits for in-flight tasks to finish, bounded by the caller's
// context.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	select {
	case <-s.cron.Stop().Done():
		s.log.Info("scheduler stopped cleanly")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out with tasks in flight")
	}
	s.running = false
	return nil
}

// AddCronTask registers a task under a cron expression with a seconds
// field: "second minute hour day-of-month month day-of-week".
func (s *Scheduler) AddCronTask(name string, schedule string, task TaskFunc) error {
	if err := s.register(name, schedule, task); err != nil {
		return err
	}
	s.log.Info("registered cron task",
		slog.String("name", name),
		slog.String("schedule", schedule))
	return nil
}

// AddIntervalTask registers a task that fires every interval.
func (s *Scheduler) AddIntervalTask(name string, interval time.Duration, task TaskFunc) error {
	if err := s.register(name, "@every "+interval.String(), task); err != nil {
		return err
	}
	s.log.Info("registered interval task",
		slog.String("name", name),
		slog.Duration("interval", interval))
	return nil
}

// register swaps in the new schedule for name, dropping any previous one.
func (s *Scheduler) register(name string, schedule string, task TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.tasks[name]; ok {
		s.cron.Remove(prev)
		delete(s.tasks, name)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.runTask(name, task)
	})
	if err != nil {
		return err
	}
	s.tasks[name] = entryID
	return nil
}

// runTask executes one firing under the task timeout. A failed run is
// logged and swallowed; the schedule keeps firing.
func (s *Scheduler) runTask(name string, task TaskFunc) {
	started := time.Now()
	s.log.Debug("task firing", slog.String("name", name))

	ctx, cancel := context.WithTimeout(context.Background(), s.taskTimeout)
	defer cancel()

	if err := task(ctx); err != nil {
		s.log.Error("task run failed",
			slog.String("name", name),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(started)))
		return
	}

	s.log.Debug("task run finished",
		slog.String("name", name),
		slog.Duration("duration", time.Since(started)))
}

// ListTasks returns the registered task names.
func (s *Scheduler) ListTasks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	return names
}

// TaskInfo describes one registered task and its run times.
type TaskInfo struct {
	Name    string    `json:"name"`
	NextRun time.Time `json:"next_run"`
	PrevRun time.Time `json:"prev_run,omitempty"`
}

// GetTaskInfo reports every registered task with its next and previous
// fire times. PrevRun is zero until the first firing.
func (s *Scheduler) GetTaskInfo() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var info []TaskInfo
	entries := s.cron.Entries()
	for name, entryID := range s.tasks {
		for _, entry := range entries {
			if entry.ID == entryID {
				info = append(info, TaskInfo{
					Name:    name,
					NextRun: entry.Next,
					PrevRun: entry.Prev,
				})
				break
			}
		}
	}
	return info
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
