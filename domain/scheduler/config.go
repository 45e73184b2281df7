package scheduler

import (
	"os"
	"strconv"
	"time"

	"github.com/stixgraph/stixgraph/pkg/mathutil"
)

// Config controls which background tasks run and how often.
type Config struct {
	// Enabled turns the whole scheduler off when false.
	Enabled bool

	// GraphResyncInterval is how often the graph projection is rebuilt
	// from the current bundle.
	GraphResyncInterval time.Duration

	// EmbeddingBackfillInterval is how often entities still missing
	// vectors get embedded.
	EmbeddingBackfillInterval time.Duration

	// TaskTimeoutMinutes bounds a single task run.
	TaskTimeoutMinutes int

	// Cron overrides. When set they win over the intervals. Six-field
	// cron syntax with a leading seconds field.
	GraphResyncSchedule       string
	EmbeddingBackfillSchedule string
}

// NewConfig reads the scheduler settings from the environment.
func NewConfig() *Config {
	return &Config{
		Enabled:                   envBool("SCHEDULER_ENABLED", true),
		GraphResyncInterval:       envMillis("GRAPH_RESYNC_INTERVAL_MS", 6*time.Hour),
		EmbeddingBackfillInterval: envMillis("EMBEDDING_BACKFILL_INTERVAL_MS", 15*time.Minute),
		TaskTimeoutMinutes:        mathutil.ClampInt(envInt("SCHEDULER_TASK_TIMEOUT_MINUTES", 30), 1, 120),
		GraphResyncSchedule:       envString("GRAPH_RESYNC_SCHEDULE", ""),
		EmbeddingBackfillSchedule: envString("EMBEDDING_BACKFILL_SCHEDULE", ""),
	}
}

// Unset and unparseable variables fall back to the default.

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// envMillis reads an integer count of milliseconds.
func envMillis(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
