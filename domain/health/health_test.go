package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stixgraph/stixgraph/domain/scheduler"
	"github.com/stixgraph/stixgraph/internal/config"
)

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name         string
		dbHealthy    bool
		graphHealthy bool
		wantStatus   string
		wantCode     int
	}{
		{"both stores up", true, true, "healthy", http.StatusOK},
		{"graph down degrades", true, false, "degraded", http.StatusOK},
		{"database down is fatal", false, true, "unhealthy", http.StatusServiceUnavailable},
		{"both down", false, false, "unhealthy", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := overallStatus(tt.dbHealthy, tt.graphHealthy)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestHealthz(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := &Handler{}
	require.NoError(t, h.Healthz(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestDebug_HiddenInProduction(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/debug", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := &Handler{cfg: &config.Config{Environment: "production"}}
	err := h.Debug(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestFormatRunTime(t *testing.T) {
	assert.Equal(t, "", formatRunTime(time.Time{}))

	ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-06-01T12:30:00Z", formatRunTime(ts))
}

func newTestScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return scheduler.NewScheduler(&scheduler.Config{TaskTimeoutMinutes: 30}, log)
}

func TestSchedulerMetrics(t *testing.T) {
	sched := newTestScheduler(t)
	err := sched.AddIntervalTask("graph_resync", time.Hour, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/metrics/scheduler", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	m := NewMetricsHandler(sched)
	require.NoError(t, m.SchedulerMetrics(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp SchedulerStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Running)
	require.Len(t, resp.Tasks, 1)
	assert.Equal(t, "graph_resync", resp.Tasks[0].Name)
	assert.Empty(t, resp.Tasks[0].PrevRun)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestSchedulerMetrics_NoTasks(t *testing.T) {
	sched := newTestScheduler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/metrics/scheduler", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	m := NewMetricsHandler(sched)
	require.NoError(t, m.SchedulerMetrics(c))

	// An empty task list serializes as [], not null.
	assert.Contains(t, rec.Body.String(), `"tasks":[]`)
}
