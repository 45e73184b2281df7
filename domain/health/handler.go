// Package health exposes liveness, readiness, and diagnostic endpoints.
//
// The two backing stores are weighted differently: the document store is
// the only hard dependency, while the graph store is a derived view that
// can be rebuilt at any time. A down graph store therefore degrades the
// service instead of failing it.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/stixgraph/stixgraph/domain/graph"
	"github.com/stixgraph/stixgraph/internal/config"
	"github.com/stixgraph/stixgraph/internal/version"
	"github.com/stixgraph/stixgraph/pkg/embeddings"
	"github.com/stixgraph/stixgraph/pkg/llm"
)

// Handler serves the probe and diagnostic routes.
type Handler struct {
	pool     *pgxpool.Pool
	graph    *graph.Service
	embedder *embeddings.Service
	llm      *llm.Service
	cfg      *config.Config
	startAt  time.Time
}

// NewHandler wires the handler to both stores and the provider gateways.
func NewHandler(pool *pgxpool.Pool, graphSvc *graph.Service, embedder *embeddings.Service, llmSvc *llm.Service, cfg *config.Config) *Handler {
	return &Handler{
		pool:     pool,
		graph:    graphSvc,
		embedder: embedder,
		llm:      llmSvc,
		cfg:      cfg,
		startAt:  time.Now(),
	}
}

// HealthResponse is the body of the full health report.
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

// Check is the observed state of one dependency.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// overallStatus folds the store checks into a service status and HTTP code.
// Bundle reads and writes are served from Postgres alone, so only the
// document store can make the service unhealthy; a down graph store
// reports degraded with a 200.
func overallStatus(dbHealthy, graphHealthy bool) (string, int) {
	switch {
	case !dbHealthy:
		return "unhealthy", http.StatusServiceUnavailable
	case !graphHealthy:
		return "degraded", http.StatusOK
	default:
		return "healthy", http.StatusOK
	}
}

// Health returns the overall service health, covering both stores and the
// optional embedding and chat providers.
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dbCheck := Check{Status: "healthy"}
	if err := h.pool.Ping(ctx); err != nil {
		dbCheck = Check{Status: "unhealthy", Message: err.Error()}
	}

	graphCheck := Check{Status: "healthy"}
	if err := h.graph.Ping(ctx); err != nil {
		graphCheck = Check{Status: "unhealthy", Message: err.Error()}
	}

	// Provider checks are informational and never affect the overall status.
	embCheck := Check{Status: "disabled"}
	if h.embedder.IsEnabled() {
		embCheck = Check{Status: "enabled", Message: h.cfg.Embeddings.Model}
	}

	llmCheck := Check{Status: "disabled"}
	if h.llm.IsEnabled() {
		llmCheck = Check{Status: "enabled", Message: h.llm.Model()}
	}

	status, code := overallStatus(dbCheck.Status == "healthy", graphCheck.Status == "healthy")

	return c.JSON(code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startAt).String(),
		Version:   version.Version,
		Checks: map[string]Check{
			"database":   dbCheck,
			"graph":      graphCheck,
			"embeddings": embCheck,
			"llm":        llmCheck,
		},
	})
}

// Healthz answers liveness probes with a bare OK.
func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Ready returns readiness status (for k8s readiness probes). Readiness
// tracks the document store only: a down graph store must not take the
// service out of rotation while bundles are still being served.
func (h *Handler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":  "not_ready",
			"message": "document store unreachable",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// memorySnapshot summarizes the runtime heap in megabytes.
func memorySnapshot() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return map[string]any{
		"alloc_mb":       mem.Alloc / 1024 / 1024,
		"total_alloc_mb": mem.TotalAlloc / 1024 / 1024,
		"sys_mb":         mem.Sys / 1024 / 1024,
		"num_gc":         mem.NumGC,
	}
}

// poolSnapshot summarizes pgx pool usage.
func poolSnapshot(stat *pgxpool.Stat) map[string]any {
	return map[string]any{
		"total_conns":       stat.TotalConns(),
		"acquired_conns":    stat.AcquiredConns(),
		"idle_conns":        stat.IdleConns(),
		"max_conns":         stat.MaxConns(),
		"canceled_acquires": stat.CanceledAcquireCount(),
		"empty_acquires":    stat.EmptyAcquireCount(),
	}
}

// Debug dumps process internals. The route pretends not to exist in
// production.
func (h *Handler) Debug(c echo.Context) error {
	if h.cfg.IsProduction() {
		return echo.ErrNotFound
	}

	return c.JSON(http.StatusOK, map[string]any{
		"environment": h.cfg.Environment,
		"debug":       h.cfg.Debug,
		"build":       version.String(),
		"go_version":  runtime.Version(),
		"goroutines":  runtime.NumGoroutine(),
		"memory":      memorySnapshot(),
		"database": map[string]any{
			"host":     h.cfg.Database.Host,
			"port":     h.cfg.Database.Port,
			"database": h.cfg.Database.Database,
			"pool":     poolSnapshot(h.pool.Stat()),
		},
		"graph": map[string]any{
			"uri":      h.cfg.Graph.URI,
			"database": h.cfg.Graph.Database,
		},
	})
}

// statProbes are the pg_stat queries Diagnose runs. Each returns a single
// JSON array column.
var statProbes = []struct {
	key string
	sql string
}{
	{"connections", `
		SELECT COALESCE(json_agg(json_build_object(
		        'state', COALESCE(state, 'unknown'),
		        'count', count)), '[]'::json)
		FROM (SELECT state, count(*) AS count
		      FROM pg_stat_activity GROUP BY state) s`},
	{"long_queries", `
		SELECT COALESCE(json_agg(json_build_object(
		        'pid', pid,
		        'query', left(query, 100),
		        'duration', age(clock_timestamp(), query_start),
		        'state', state)), '[]'::json)
		FROM pg_stat_activity
		WHERE state != 'idle'
		  AND query_start < clock_timestamp() - interval '2 seconds'
		  AND pid <> pg_backend_pid()`},
	{"settings", `
		SELECT COALESCE(json_agg(json_build_object(
		        'name', name,
		        'setting', setting)), '[]'::json)
		FROM pg_settings
		WHERE name IN ('max_connections', 'shared_buffers', 'work_mem',
		               'idle_in_transaction_session_timeout', 'statement_timeout')`},
	{"tables", `
		SELECT COALESCE(json_agg(json_build_object(
		        'table', t.relname,
		        'size', pg_size_pretty(t.total_bytes),
		        'rows', t.live_rows)), '[]'::json)
		FROM (SELECT c.relname,
		             pg_total_relation_size(c.oid) AS total_bytes,
		             COALESCE(s.n_live_tup, 0) AS live_rows
		      FROM pg_class c
		      JOIN pg_namespace n ON n.oid = c.relnamespace
		      LEFT JOIN pg_stat_user_tables s
		             ON s.relname = c.relname AND s.schemaname = n.nspname
		      WHERE n.nspname = 'intel' AND c.relkind = 'r'
		      ORDER BY pg_total_relation_size(c.oid) DESC
		      LIMIT 10) t`},
}

// Diagnose reports server and database internals for operators. Probe
// failures are reported inline; the endpoint itself always answers 200.
func (h *Handler) Diagnose(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	db := map[string]any{
		"pool": poolSnapshot(h.pool.Stat()),
	}
	for _, probe := range statProbes {
		rows, err := h.queryJSONRows(ctx, probe.sql)
		if err != nil {
			db["error"] = err.Error()
			break
		}
		db[probe.key] = rows
	}

	return c.JSON(http.StatusOK, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startAt).String(),
		"server": map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"num_cpu":    runtime.NumCPU(),
			"go_version": runtime.Version(),
			"memory":     memorySnapshot(),
		},
		"database": db,
	})
}

// queryJSONRows runs a query whose only column is a JSON array and
// decodes it.
func (h *Handler) queryJSONRows(ctx context.Context, sql string) ([]map[string]any, error) {
	var raw []byte
	if err := h.pool.QueryRow(ctx, sql).Scan(&raw); err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
