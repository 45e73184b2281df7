package llm

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/stixgraph/stixgraph/internal/config"
	"github.com/stixgraph/stixgraph/pkg/llm/openai"
)

var Module = fx.Module("llm",
	fx.Provide(NewService),
)

// Service fronts the configured chat provider. Disabled deployments keep
// the noop provider, which answers every call with ErrNotConfigured.
type Service struct {
	provider Provider
	log      *slog.Logger
	enabled  bool
	model    string
}

// NewNoopService returns a permanently disabled service, for tests and
// for wiring paths that need a *Service but no provider.
func NewNoopService(log *slog.Logger) *Service {
	return &Service{
		provider: NewNoopProvider(),
		log:      log,
		enabled:  false,
	}
}

// NewService selects the provider from config. The client is dialed in
// OnStart rather than at construction so an unreachable provider logs
// and degrades instead of failing the whole app.
func NewService(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) *Service {
	llmCfg := cfg.LLM

	if !llmCfg.IsEnabled() {
		log.Info("chat disabled, no provider configured")
		return NewNoopService(log)
	}

	svc := NewNoopService(log)
	svc.model = llmCfg.Model

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting openai-compatible chat client",
				slog.String("base_url", llmCfg.BaseURL),
				slog.String("model", llmCfg.Model),
			)

			client, err := openai.NewClient(openai.Config{
				BaseURL:         llmCfg.BaseURL,
				APIKey:          llmCfg.APIKey,
				Model:           llmCfg.Model,
				Timeout:         llmCfg.Timeout,
				Temperature:     llmCfg.Temperature,
				MaxOutputTokens: llmCfg.MaxOutputTokens,
			}, openai.WithLogger(log))
			if err != nil {
				log.Error("chat client startup failed, running disabled",
					slog.String("error", err.Error()))
				return nil
			}
			svc.provider = &openaiProvider{client: client}
			svc.enabled = true
			svc.model = client.Model()
			return nil
		},
	})

	return svc
}

// IsEnabled reports whether a provider is dialed and ready.
func (s *Service) IsEnabled() bool {
	return s.enabled
}

// Model returns the chat model the service will answer with.
func (s *Service) Model() string {
	return s.model
}

// Complete produces a reply for the conversation in one response.
func (s *Service) Complete(ctx context.Context, messages []Message) (*Result, error) {
	return s.provider.Complete(ctx, messages)
}

// Stream produces a reply token by token, then returns the assembled
// result.
func (s *Service) Stream(ctx context.Context, messages []Message, onToken func(string)) (*Result, error) {
	return s.provider.Stream(ctx, messages, onToken)
}

// openaiProvider adapts the openai client to the Provider contract.
type openaiProvider struct {
	client *openai.Client
}

func (p *openaiProvider) Complete(ctx context.Context, messages []Message) (*Result, error) {
	result, err := p.client.Generate(ctx, openai.GenerateRequest{
		Messages: toClientMessages(messages),
	})
	if err != nil {
		return nil, err
	}
	return &Result{Content: result.Content, Model: result.Model}, nil
}

func (p *openaiProvider) Stream(ctx context.Context, messages []Message, onToken func(string)) (*Result, error) {
	result, err := p.client.GenerateStreaming(ctx, openai.GenerateRequest{
		Messages: toClientMessages(messages),
	}, onToken)
	if err != nil {
		return nil, err
	}
	return &Result{Content: result.Content, Model: result.Model}, nil
}

func (p *openaiProvider) IsConfigured() bool {
	return p.client.IsAvailable()
}

func toClientMessages(messages []Message) []openai.Message {
	out := make([]openai.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
