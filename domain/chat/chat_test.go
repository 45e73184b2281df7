package chat

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stixgraph/stixgraph/domain/search"
	"github.com/stixgraph/stixgraph/internal/config"
	"github.com/stixgraph/stixgraph/pkg/apperror"
	"github.com/stixgraph/stixgraph/pkg/llm"
)

func newTestService() *Service {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := &config.Config{}
	cfg.LLM.RAGTopK = 5
	return NewService(llm.NewNoopService(log), nil, cfg, log)
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{
			name:    "empty messages rejected",
			req:     Request{},
			wantErr: true,
		},
		{
			name: "unknown role rejected",
			req: Request{
				Messages: []Message{{Role: "bot", Content: "hi"}},
			},
			wantErr: true,
		},
		{
			name: "single user message",
			req: Request{
				Messages: []Message{{Role: "user", Content: "What is phishing?"}},
			},
		},
		{
			name: "mixed history with all roles",
			req: Request{
				Messages: []Message{
					{Role: "system", Content: "be brief"},
					{Role: "user", Content: "hello"},
					{Role: "assistant", Content: "hi"},
					{Role: "user", Content: "tell me more"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(&tt.req)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperror.ErrBadRequest)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAssemblePayload(t *testing.T) {
	payload := assemblePayload("base prompt", []Message{
		{Role: "user", Content: "  What is phishing?  "},
		{Role: "assistant", Content: "An attack technique."},
	})

	require.Len(t, payload, 3)
	assert.Equal(t, llm.RoleSystem, payload[0].Role)
	assert.Equal(t, "base prompt", payload[0].Content)
	assert.Equal(t, "What is phishing?", payload[1].Content, "contents are trimmed")
	assert.Equal(t, llm.RoleAssistant, payload[2].Role)
}

func TestAssemblePayload_GreetingWhenNoUserTurn(t *testing.T) {
	payload := assemblePayload("base", []Message{
		{Role: "assistant", Content: "Welcome back."},
	})

	require.Len(t, payload, 3)
	last := payload[len(payload)-1]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.Equal(t, "Hello.", last.Content)
}

func TestAssemblePayload_NoGreetingWhenUserPresent(t *testing.T) {
	payload := assemblePayload("base", []Message{
		{Role: "user", Content: "hi"},
	})

	require.Len(t, payload, 2)
	for _, m := range payload[1:] {
		assert.NotEqual(t, "Hello.", m.Content)
	}
}

func TestAssemblePayload_ClientSystemTurnKept(t *testing.T) {
	payload := assemblePayload("base", []Message{
		{Role: "system", Content: "answer in French"},
		{Role: "user", Content: "hello"},
	})

	require.Len(t, payload, 3)
	assert.Equal(t, llm.RoleSystem, payload[1].Role)
	assert.Equal(t, "answer in French", payload[1].Content)
}

func TestLastUserQuery(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		want     string
	}{
		{
			name: "latest user turn wins",
			messages: []Message{
				{Role: "user", Content: "first question"},
				{Role: "assistant", Content: "answer"},
				{Role: "user", Content: "second question"},
			},
			want: "second question",
		},
		{
			name: "blank user turns are skipped",
			messages: []Message{
				{Role: "user", Content: "real question"},
				{Role: "user", Content: "   "},
			},
			want: "real question",
		},
		{
			name: "no user turn",
			messages: []Message{
				{Role: "assistant", Content: "hello"},
			},
			want: "",
		},
		{
			name:     "empty history",
			messages: nil,
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lastUserQuery(tt.messages))
		})
	}
}

func TestFormatContextEntry(t *testing.T) {
	full := formatContextEntry(search.Result{
		ID:          "attack-pattern--0001",
		Type:        "attack-pattern",
		Name:        "Phishing",
		ShortName:   "phishing",
		Description: "Adversaries send deceptive messages.",
	})
	assert.Equal(t, strings.Join([]string{
		"Name: Phishing",
		"Type: attack-pattern",
		"ID: attack-pattern--0001",
		"Short name: phishing",
		"Description: Adversaries send deceptive messages.",
	}, "\n"), full)

	partial := formatContextEntry(search.Result{
		ID:   "intrusion-set--0002",
		Type: "intrusion-set",
		Name: "APT1",
	})
	assert.Equal(t, "Name: APT1\nType: intrusion-set\nID: intrusion-set--0002", partial)

	assert.Equal(t, "", formatContextEntry(search.Result{}))
}

func TestBuildContextBlocks(t *testing.T) {
	blocks := buildContextBlocks([]search.Result{
		{ID: "attack-pattern--0001", Name: "Phishing"},
		{ID: "course-of-action--0002", Name: "User Training"},
	})

	parts := strings.Split(blocks, "\n\n---\n\n")
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "Phishing")
	assert.Contains(t, parts[1], "User Training")
}

func TestBuildContextBlocks_Empty(t *testing.T) {
	assert.Equal(t, "", buildContextBlocks(nil))
	assert.Equal(t, "", buildContextBlocks([]search.Result{{}}))
}

func TestSystemPrompt(t *testing.T) {
	svc := newTestService()

	// Client-supplied prompt wins and is trimmed
	got := svc.systemPrompt(t.Context(), &Request{
		System:   "  answer tersely  ",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	assert.Equal(t, "answer tersely", got)

	// Built-in default otherwise
	got = svc.systemPrompt(t.Context(), &Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	assert.Equal(t, defaultSystemPrompt, got)
}

func TestChat_ProviderNotConfigured(t *testing.T) {
	svc := newTestService()

	_, err := svc.Chat(t.Context(), &Request{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrLLMUnavailable)
}

func TestChat_EmptyMessages(t *testing.T) {
	svc := newTestService()

	_, err := svc.Chat(t.Context(), &Request{})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}
