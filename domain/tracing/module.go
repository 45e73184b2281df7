// Package tracing turns on OTLP trace export when an endpoint is
// configured and installs a no-op provider otherwise, so span calls in
// the domain packages cost nothing in untraced deployments.
package tracing

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"

	"github.com/stixgraph/stixgraph/internal/config"
)

var Module = fx.Module("tracing",
	fx.Provide(NewTracerProvider),
	fx.Invoke(RegisterTracingLifecycle),
	fx.Invoke(RegisterEchoMiddleware),
)

// traceSkipPaths are probe and scrape endpoints that would flood the
// trace backend with uninteresting spans.
var traceSkipPaths = map[string]struct{}{
	"/health":  {},
	"/healthz": {},
	"/ready":   {},
	"/metrics": {},
}

// providerOut hands the SDK provider to the lifecycle hook. It stays nil
// when tracing is disabled; only a real provider needs a shutdown flush.
type providerOut struct {
	fx.Out

	Provider *sdktrace.TracerProvider `name:"traceProvider" optional:"true"`
}

// NewTracerProvider registers the global TracerProvider: an OTLP/HTTP
// exporter behind a batcher when configured, the no-op provider when not.
func NewTracerProvider(cfg *config.Config, log *slog.Logger) (providerOut, error) {
	oc := cfg.Otel

	if !oc.Enabled() {
		log.Info("tracing disabled, no OTLP endpoint configured")
		otel.SetTracerProvider(noop.NewTracerProvider())
		return providerOut{}, nil
	}

	log.Info("tracing enabled",
		slog.String("endpoint", oc.ExporterEndpoint),
		slog.String("service", oc.ServiceName),
		slog.Float64("sampling_rate", oc.SamplingRate),
	)

	exp, err := otlptracehttp.New(
		context.Background(),
		otlptracehttp.WithEndpointURL(oc.ExporterEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return providerOut{}, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(newResource(oc.ServiceName, log)),
		sdktrace.WithSampler(samplerFor(oc.SamplingRate)),
	)
	otel.SetTracerProvider(tp)

	return providerOut{Provider: tp}, nil
}

// newResource describes this process to the trace backend. Detection
// failure is not fatal: spans still flow, just with an empty resource.
func newResource(serviceName string, log *slog.Logger) *resource.Resource {
	res, err := resource.New(context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithFromEnv(),
		resource.WithProcess(),
	)
	if err != nil {
		log.Warn("trace resource detection failed, continuing without attributes",
			slog.String("error", err.Error()))
		return resource.Empty()
	}
	return res
}

func samplerFor(rate float64) sdktrace.Sampler {
	if rate >= 1.0 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.TraceIDRatioBased(rate)
}

// providerIn receives the optional SDK provider by name.
type providerIn struct {
	fx.In
	Provider *sdktrace.TracerProvider `name:"traceProvider" optional:"true"`
}

// RegisterTracingLifecycle flushes buffered spans and stops the provider
// on app stop.
func RegisterTracingLifecycle(lc fx.Lifecycle, p providerIn, log *slog.Logger) {
	if p.Provider == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("flushing tracer provider")
			return p.Provider.Shutdown(ctx)
		},
	})
}

// RegisterEchoMiddleware traces incoming requests, probe endpoints
// excepted.
func RegisterEchoMiddleware(e *echo.Echo, cfg *config.Config) {
	if !cfg.Otel.Enabled() {
		return
	}
	e.Use(otelecho.Middleware(
		cfg.Otel.ServiceName,
		otelecho.WithSkipper(func(c echo.Context) bool {
			_, skip := traceSkipPaths[c.Request().URL.Path]
			return skip
		}),
	))
}
