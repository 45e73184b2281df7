package health

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stixgraph/stixgraph/domain/scheduler"
)

// MetricsHandler serves operational metrics about background work.
type MetricsHandler struct {
	sched *scheduler.Scheduler
}

// NewMetricsHandler builds the metrics handler.
func NewMetricsHandler(sched *scheduler.Scheduler) *MetricsHandler {
	return &MetricsHandler{sched: sched}
}

// TaskStatus describes a single scheduled task and its run times.
type TaskStatus struct {
	Name    string `json:"name"`
	NextRun string `json:"next_run,omitempty"`
	PrevRun string `json:"prev_run,omitempty"`
}

// SchedulerStatus reports the scheduler state and its registered tasks.
type SchedulerStatus struct {
	Running   bool         `json:"running"`
	Tasks     []TaskStatus `json:"tasks"`
	Timestamp string       `json:"timestamp"`
}

// SchedulerMetrics returns the registered scheduled tasks with their next
// and previous run times.
func (h *MetricsHandler) SchedulerMetrics(c echo.Context) error {
	info := h.sched.GetTaskInfo()

	tasks := make([]TaskStatus, 0, len(info))
	for _, t := range info {
		tasks = append(tasks, TaskStatus{
			Name:    t.Name,
			NextRun: formatRunTime(t.NextRun),
			PrevRun: formatRunTime(t.PrevRun),
		})
	}

	return c.JSON(http.StatusOK, SchedulerStatus{
		Running:   h.sched.IsRunning(),
		Tasks:     tasks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// formatRunTime renders a run time as RFC3339. The zero time renders empty:
// a task that has never fired has no previous run, and an unstarted
// scheduler has no next run.
func formatRunTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
