package embeddings

import (
	"context"
	"log/slog"
	"strings"

	"go.uber.org/fx"

	"github.com/stixgraph/stixgraph/internal/config"
	"github.com/stixgraph/stixgraph/pkg/embeddings/genai"
	"github.com/stixgraph/stixgraph/pkg/embeddings/openai"
)

var Module = fx.Module("embeddings",
	fx.Provide(NewService),
)

// Service fronts whichever embedding provider is configured. Disabled
// deployments get the noop client; callers check IsEnabled before
// treating empty vectors as data.
type Service struct {
	client  Client
	log     *slog.Logger
	enabled bool
}

// NewNoopService returns a permanently disabled service, for tests and
// for wiring paths that need a *Service but no provider.
func NewNoopService(log *slog.Logger) *Service {
	return &Service{
		client:  NewNoopClient(),
		log:     log,
		enabled: false,
	}
}

// NewService selects the provider from config. The client is dialed in
// OnStart rather than at construction so a misconfigured provider logs
// and degrades instead of failing the whole app.
func NewService(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) *Service {
	embCfg := cfg.Embeddings

	if !embCfg.IsEnabled() {
		log.Info("embeddings disabled, no provider configured")
		return NewNoopService(log)
	}

	svc := NewNoopService(log)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			client, err := startClient(ctx, embCfg, log)
			if err != nil {
				log.Error("embeddings client startup failed, running disabled",
					slog.String("error", err.Error()))
				return nil
			}
			svc.client = client
			svc.enabled = true
			return nil
		},
	})
	return svc
}

// startClient dials the configured provider: Google Generative AI when a
// Google API key is set, the OpenAI-compatible endpoint otherwise.
func startClient(ctx context.Context, embCfg config.EmbeddingsConfig, log *slog.Logger) (Client, error) {
	if embCfg.UseGenAI() {
		log.Info("starting genai embeddings client",
			slog.String("model", embCfg.Model),
		)
		return genai.NewClient(ctx, genai.Config{
			APIKey: embCfg.GoogleAPIKey,
			Model:  embCfg.Model,
		}, genai.WithLogger(log), genai.WithMaxRetries(embCfg.MaxRetries))
	}

	log.Info("starting openai-compatible embeddings client",
		slog.String("base_url", embCfg.BaseURL),
		slog.String("model", embCfg.Model),
	)
	return openai.NewClient(openai.Config{
		BaseURL:   embCfg.BaseURL,
		APIKey:    embCfg.APIKey,
		Model:     embCfg.Model,
		BatchSize: embCfg.BatchSize,
	}, openai.WithLogger(log), openai.WithMaxRetries(embCfg.MaxRetries))
}

// IsEnabled reports whether a provider is dialed and ready.
func (s *Service) IsEnabled() bool {
	return s.enabled
}

// EmbedQuery generates an embedding for a single query.
// Whitespace-only input returns nil without a provider call.
func (s *Service) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return s.client.EmbedQuery(ctx, query)
}

// EmbedDocuments generates embeddings for multiple documents. Output order
// matches input order; blank documents keep a nil vector in their slot and
// are never sent to the provider.
func (s *Service) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	indices := make([]int, 0, len(documents))
	toEncode := make([]string, 0, len(documents))
	for i, doc := range documents {
		if trimmed := strings.TrimSpace(doc); trimmed != "" {
			indices = append(indices, i)
			toEncode = append(toEncode, trimmed)
		}
	}

	result := make([][]float32, len(documents))
	if len(toEncode) == 0 {
		return result, nil
	}

	vectors, err := s.client.EmbedDocuments(ctx, toEncode)
	if err != nil {
		return nil, err
	}
	for k, idx := range indices {
		if k < len(vectors) {
			result[idx] = vectors[k]
		}
	}
	return result, nil
}
