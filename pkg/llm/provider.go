// Package llm fronts chat completion providers behind a single interface.
package llm

import (
	"context"
	"errors"
)

// Roles a conversation turn can carry.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNotConfigured is returned when no chat provider is available.
var ErrNotConfigured = errors.New("llm provider not configured")

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is a completed chat turn.
type Result struct {
	Content string
	Model   string
}

// Provider is the contract a chat backend fulfils.
type Provider interface {
	// Complete produces a reply in one response.
	Complete(ctx context.Context, messages []Message) (*Result, error)

	// Stream produces a reply token by token, invoking onToken for each
	// delta, and returns the assembled result.
	Stream(ctx context.Context, messages []Message, onToken func(string)) (*Result, error)

	// IsConfigured reports whether the backend can take calls.
	IsConfigured() bool
}

// NoopProvider stands in when no chat backend is configured, so callers
// need no nil checks.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

func (p *NoopProvider) Complete(ctx context.Context, messages []Message) (*Result, error) {
	return nil, ErrNotConfigured
}

func (p *NoopProvider) Stream(ctx context.Context, messages []Message, onToken func(string)) (*Result, error) {
	return nil, ErrNotConfigured
}

func (p *NoopProvider) IsConfigured() bool {
	return false
}
