// Package config loads all runtime settings from the environment. Every
// knob has a default that works against the local docker-compose stack,
// so a bare `go run ./cmd/server` comes up without any .env file.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config is the root of the configuration tree.
type Config struct {
	// HTTP listener
	ServerPort    int    `env:"SERVER_PORT" envDefault:"8080"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// Document store (PostgreSQL)
	Database DatabaseConfig

	// Graph store (Neo4j)
	Graph GraphConfig

	// Embedding provider
	Embeddings EmbeddingsConfig

	// Chat completions
	LLM LLMConfig

	// Bundle archive (S3-compatible)
	Storage StorageConfig

	// OpenTelemetry export
	Otel OtelConfig

	// Server timeouts. Write and idle are generous because chat
	// responses stream over SSE.
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"600s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"600s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ListenAddr is the host:port the HTTP server binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerAddress, c.ServerPort)
}

// IsProduction gates endpoints that must not exist outside development,
// such as the environment dump on /debug.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DatabaseConfig carries the PostgreSQL connection settings.
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"stixgraph"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"stixgraph"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// DSN renders the postgres:// connection URL. Credentials are URL-escaped
// so passwords with reserved characters survive.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

// GraphConfig carries the Neo4j connection settings.
type GraphConfig struct {
	// URI is the bolt:// or neo4j:// endpoint.
	URI string `env:"NEO4J_URI" envDefault:"bolt://localhost:7687"`

	User     string `env:"NEO4J_USER" envDefault:"neo4j"`
	Password string `env:"NEO4J_PASSWORD" envDefault:""`

	// Database selects a named database; empty means the server default.
	Database string `env:"NEO4J_DATABASE" envDefault:""`

	// ConnectTimeout bounds the startup connectivity probe.
	ConnectTimeout time.Duration `env:"NEO4J_CONNECT_TIMEOUT" envDefault:"5s"`
}

// IsConfigured reports whether a graph store endpoint is set at all.
func (g *GraphConfig) IsConfigured() bool {
	return g.URI != ""
}

// EmbeddingsConfig selects and configures the vector embedding provider.
type EmbeddingsConfig struct {
	// Provider is "openai" for any OpenAI-compatible endpoint (LM Studio,
	// vLLM, OpenAI itself) or "genai" for the Gemini API.
	Provider string `env:"EMBEDDING_PROVIDER" envDefault:"openai"`

	BaseURL string `env:"EMBEDDINGS_BASE_URL" envDefault:"http://localhost:1234/v1"`

	// APIKey for the OpenAI-compatible endpoint. LM Studio accepts any
	// non-empty value.
	APIKey string `env:"EMBEDDINGS_API_KEY" envDefault:"lm-studio"`

	Model string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-nomic-embed-text-v1.5"`

	// Dimension of the produced vectors. Must match the pgvector column.
	Dimension int `env:"EMBEDDING_DIMENSION" envDefault:"768"`

	// GoogleAPIKey activates the "genai" provider.
	GoogleAPIKey string `env:"GOOGLE_API_KEY" envDefault:""`

	// BatchSize caps texts per provider request.
	BatchSize int `env:"EMBEDDINGS_BATCH_SIZE" envDefault:"100"`

	MaxRetries int `env:"EMBEDDINGS_MAX_RETRIES" envDefault:"3"`

	// NetworkDisabled forces the no-op embedder regardless of the rest.
	NetworkDisabled bool `env:"EMBEDDINGS_NETWORK_DISABLED" envDefault:"false"`
}

// IsEnabled reports whether the selected provider has what it needs to
// make calls.
func (e *EmbeddingsConfig) IsEnabled() bool {
	if e.NetworkDisabled {
		return false
	}
	switch e.Provider {
	case "openai":
		return e.BaseURL != "" && e.Model != ""
	case "genai":
		return e.GoogleAPIKey != ""
	default:
		return false
	}
}

// UseGenAI reports whether the Gemini provider is active.
func (e *EmbeddingsConfig) UseGenAI() bool {
	return e.Provider == "genai" && e.GoogleAPIKey != ""
}

// LLMConfig configures the chat completion backend.
type LLMConfig struct {
	// BaseURL of an OpenAI-compatible chat API.
	BaseURL string `env:"LLM_BASE_URL" envDefault:"http://localhost:1234/v1"`

	APIKey string `env:"LLM_API_KEY" envDefault:"lm-studio"`

	Model string `env:"CHAT_MODEL" envDefault:"google/gemma-3-4b"`

	MaxOutputTokens int `env:"LLM_MAX_OUTPUT_TOKENS" envDefault:"1024"`

	Temperature float64 `env:"LLM_TEMPERATURE" envDefault:"0.7"`

	Timeout time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`

	// RAGTopK is how many entities retrieval feeds into the prompt.
	RAGTopK int `env:"RAG_TOP_K" envDefault:"5"`

	// SystemPrompt overrides the built-in instructions when set.
	SystemPrompt string `env:"CHAT_SYSTEM_PROMPT" envDefault:""`

	// NetworkDisabled forces chat into its unconfigured state.
	NetworkDisabled bool `env:"LLM_NETWORK_DISABLED" envDefault:"false"`
}

// IsEnabled reports whether chat completions can be served.
func (l *LLMConfig) IsEnabled() bool {
	if l.NetworkDisabled {
		return false
	}
	return l.BaseURL != "" && l.Model != ""
}

// StorageConfig points at the S3-compatible bucket for bundle archives.
type StorageConfig struct {
	// Endpoint is the S3 or MinIO URL. Empty disables archiving.
	Endpoint        string `env:"STORAGE_ENDPOINT" envDefault:""`
	AccessKeyID     string `env:"STORAGE_ACCESS_KEY" envDefault:""`
	SecretAccessKey string `env:"STORAGE_SECRET_KEY" envDefault:""`
	Bucket          string `env:"STORAGE_BUCKET" envDefault:"stixgraph"`
	Region          string `env:"STORAGE_REGION" envDefault:"us-east-1"`
}

// IsConfigured reports whether endpoint and credentials are all present.
func (s *StorageConfig) IsConfigured() bool {
	return s.Endpoint != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// NewConfig parses the environment into a Config.
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	log.Info("configuration parsed",
		slog.String("environment", cfg.Environment),
		slog.String("listen", cfg.ListenAddr()),
		slog.String("db_host", cfg.Database.Host),
		slog.String("neo4j_uri", cfg.Graph.URI),
	)

	return cfg, nil
}
