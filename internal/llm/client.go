// Package llm provides the response providers behind assistant messages.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/pkg/metrics"
)

// ErrEmptyResponse is returned when a provider produced no text.
var ErrEmptyResponse = errors.New("provider returned an empty response")

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the conversation context handed to a provider.
type Request struct {
	Messages []ChatMessage
	Mode     model.ResponseMode
	WorkMode model.WorkMode
}

// LastUserContent returns the content of the latest user message.
func (r *Request) LastUserContent() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == string(model.RoleUser) {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Provider produces the full text of an assistant response.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// Generate returns the response text for the conversation so far.
	Generate(ctx context.Context, req *Request) (string, error)
}

// Provider names.
const (
	ProviderCanned    = "canned"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewProvider creates a provider by name. An empty name selects the canned provider.
func NewProvider(name, apiKey, modelName string) (Provider, error) {
	switch name {
	case "", ProviderCanned:
		return NewCanned(nil), nil
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, modelName)
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey, modelName)
	default:
		return nil, fmt.Errorf("unknown response provider %q", name)
	}
}

// ToChatMessages converts a branch history into provider messages. Messages
// that failed or have no content are skipped.
func ToChatMessages(msgs []model.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Status == model.StatusError || strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// Instrumented wraps a provider with request metrics and empty-response detection.
type Instrumented struct {
	Provider
}

// Instrument wraps p.
func Instrument(p Provider) *Instrumented {
	return &Instrumented{Provider: p}
}

// Generate implements Provider.
func (i *Instrumented) Generate(ctx context.Context, req *Request) (string, error) {
	text, err := i.Provider.Generate(ctx, req)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		metrics.RecordProviderRequest(i.Name(), "error")
		return "", fmt.Errorf("%s: %w", i.Name(), err)
	}
	metrics.RecordProviderRequest(i.Name(), "ok")
	return text, nil
}
