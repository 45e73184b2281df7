// Package logger provides the application's slog-based logging setup.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/fx"
)

// Module provides the application logger and the HTTP access logger.
var Module = fx.Module("logger",
	fx.Provide(NewLogger),
	fx.Provide(NewHTTPLogger),
	fx.Invoke(func(log *slog.Logger) {
		slog.SetDefault(log)
	}),
)

// NewLogger creates the root slog.Logger.
// Level comes from LOG_LEVEL (debug, info, warn/warning, error; case
// insensitive; anything else falls back to info). GO_ENV=production
// switches to the JSON handler for log shippers.
func NewLogger() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("GO_ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Scope returns the scope attribute used to tag log lines with the
// component they come from, e.g. log.With(logger.Scope("bundles.svc")).
func Scope(scope string) slog.Attr {
	return slog.String("scope", scope)
}

// Error returns the error attribute under the conventional "error" key.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// HTTPLogger writes one access-log line per request. When HTTP_LOG_FILE is
// set the lines go to that file in a combined-log-like format; otherwise it
// is a no-op (the request logger middleware already logs to the app logger).
type HTTPLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewHTTPLogger opens the access log file if configured.
func NewHTTPLogger(log *slog.Logger) *HTTPLogger {
	path := os.Getenv("HTTP_LOG_FILE")
	if path == "" {
		return &HTTPLogger{}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warn("could not open HTTP log file, access logging disabled",
			slog.String("path", path), Error(err))
		return &HTTPLogger{}
	}

	return &HTTPLogger{file: f}
}

// LogRequest appends a single access-log entry.
func (h *HTTPLogger) LogRequest(ip, method, uri string, status int, latency time.Duration, userAgent, requestID string) {
	if h.file == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	fmt.Fprintf(h.file, "%s %s %q %q %d %s %q %s\n",
		time.Now().UTC().Format(time.RFC3339),
		ip, method, uri, status, latency, userAgent, requestID,
	)
}

// Close releases the access log file. Safe to call when no file is open.
func (h *HTTPLogger) Close() error {
	if h.file == nil {
		return nil
	}
	return h.file.Close()
}
