package config

// OtelConfig controls trace export. An empty endpoint keeps the no-op
// provider installed.
type OtelConfig struct {
	// ExporterEndpoint is an OTLP/HTTP collector URL, e.g.
	// http://localhost:4318.
	ExporterEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ServiceName      string  `env:"OTEL_SERVICE_NAME"            envDefault:"stixgraph-server"`
	SamplingRate     float64 `env:"OTEL_SAMPLING_RATE"           envDefault:"1.0"`
}

// Enabled reports whether an OTLP endpoint is configured.
func (c OtelConfig) Enabled() bool {
	return c.ExporterEndpoint != ""
}
