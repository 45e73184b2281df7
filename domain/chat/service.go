// Package chat answers conversational questions about the loaded bundle,
// grounding replies in entities retrieved from the document store.
//
// Chat is stateless: the client supplies the full message history on every
// request and nothing is persisted server-side.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/stixgraph/stixgraph/domain/search"
	"github.com/stixgraph/stixgraph/internal/config"
	"github.com/stixgraph/stixgraph/pkg/apperror"
	"github.com/stixgraph/stixgraph/pkg/llm"
	"github.com/stixgraph/stixgraph/pkg/logger"
)

const (
	// defaultSystemPrompt is used when neither the request nor
	// CHAT_SYSTEM_PROMPT supplies one.
	defaultSystemPrompt = "You are a threat intelligence assistant. Answer questions about adversary tactics, techniques, software, and mitigations clearly using markdown formatting."

	// contextPreamble introduces retrieved entities inside the system turn.
	contextPreamble = "\n\n## Relevant Context\nUse the following threat intelligence entries when they help answer the user's question:\n\n"

	// defaultGreeting is sent as the user turn when the history has none.
	defaultGreeting = "Hello."
)

// Service builds chat completions over the configured LLM provider.
type Service struct {
	llm           *llm.Service
	search        *search.Service
	defaultSystem string
	ragTopK       int
	log           *slog.Logger
}

// NewService creates a new chat service
func NewService(llmSvc *llm.Service, searchSvc *search.Service, cfg *config.Config, log *slog.Logger) *Service {
	system := strings.TrimSpace(cfg.LLM.SystemPrompt)
	if system == "" {
		system = defaultSystemPrompt
	}
	return &Service{
		llm:           llmSvc,
		search:        searchSvc,
		defaultSystem: system,
		ragTopK:       cfg.LLM.RAGTopK,
		log:           log.With(logger.Scope("chat.svc")),
	}
}

// Enabled reports whether a chat provider is configured.
func (s *Service) Enabled() bool {
	return s.llm.IsEnabled()
}

// Model returns the configured chat model name.
func (s *Service) Model() string {
	return s.llm.Model()
}

// Chat generates a reply for the supplied conversation.
func (s *Service) Chat(ctx context.Context, req *Request) (*Response, error) {
	return s.complete(ctx, req, nil)
}

// ChatStream generates a reply, invoking onToken for each delta as it
// arrives, and returns the assembled response.
func (s *Service) ChatStream(ctx context.Context, req *Request, onToken func(string)) (*Response, error) {
	return s.complete(ctx, req, onToken)
}

func (s *Service) complete(ctx context.Context, req *Request, onToken func(string)) (*Response, error) {
	payload, err := s.buildPayload(ctx, req)
	if err != nil {
		return nil, err
	}

	var result *llm.Result
	mode := "complete"
	if onToken != nil {
		mode = "stream"
		result, err = s.llm.Stream(ctx, payload, onToken)
	} else {
		result, err = s.llm.Complete(ctx, payload)
	}
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return nil, apperror.ErrLLMUnavailable
		}
		s.log.Error("chat completion failed", slog.String("error", err.Error()))
		return nil, apperror.ErrLLMUnavailable.WithMessage("Chat service unavailable").WithInternal(err)
	}
	CompletionsTotal.WithLabelValues(mode).Inc()

	model := result.Model
	if model == "" {
		model = s.llm.Model()
	}
	return &Response{Reply: strings.TrimSpace(result.Content), Model: model}, nil
}

// buildPayload validates the request and assembles the provider payload.
func (s *Service) buildPayload(ctx context.Context, req *Request) ([]llm.Message, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if !s.llm.IsEnabled() {
		return nil, apperror.ErrLLMUnavailable
	}
	return assemblePayload(s.systemPrompt(ctx, req), req.Messages), nil
}

// assemblePayload builds the provider payload: one system turn, the client
// history with whitespace-trimmed contents, and a greeting user turn when
// the history contains no user message.
func assemblePayload(system string, messages []Message) []llm.Message {
	payload := make([]llm.Message, 0, len(messages)+2)
	payload = append(payload, llm.Message{Role: llm.RoleSystem, Content: system})

	hasUser := false
	for _, m := range messages {
		payload = append(payload, llm.Message{Role: m.Role, Content: strings.TrimSpace(m.Content)})
		if m.Role == llm.RoleUser {
			hasUser = true
		}
	}
	if !hasUser {
		payload = append(payload, llm.Message{Role: llm.RoleUser, Content: defaultGreeting})
	}
	return payload
}

// systemPrompt combines the client-supplied prompt (or the configured
// default) with context retrieved for the latest user question.
func (s *Service) systemPrompt(ctx context.Context, req *Request) string {
	base := strings.TrimSpace(req.System)
	if base == "" {
		base = s.defaultSystem
	}
	retrieved := s.retrieveContext(ctx, lastUserQuery(req.Messages))
	if retrieved == "" {
		return base
	}
	return base + contextPreamble + retrieved
}

func validateRequest(req *Request) error {
	if len(req.Messages) == 0 {
		return apperror.NewBadRequest("at least one message is required")
	}
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleUser, llm.RoleAssistant, llm.RoleSystem:
		default:
			return apperror.NewBadRequest("role must be one of: user, assistant, system")
		}
	}
	return nil
}
