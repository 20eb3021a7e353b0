package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
)

const refineInstruction = `Rewrite the following prompt so it is specific and actionable.
Keep the author's intent. Reply with the rewritten prompt only.

Prompt:
%s`

// Refiner turns a rough prompt into a clearer one before it is submitted.
type Refiner struct {
	provider Provider
	logger   *logger.Logger
}

// NewRefiner creates a refiner. A nil provider always uses the structured fallback.
func NewRefiner(provider Provider, log *logger.Logger) *Refiner {
	return &Refiner{provider: provider, logger: logger.OrGlobal(log)}
}

// Refine returns an improved version of prompt. Canned and failing providers
// fall back to a structured template, so Refine only errors on blank input.
func (r *Refiner) Refine(ctx context.Context, prompt string, mode model.WorkMode) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("refine: %w", ErrEmptyResponse)
	}

	if r.provider != nil && r.provider.Name() != ProviderCanned {
		refined, err := r.provider.Generate(ctx, &Request{
			Messages: []ChatMessage{{Role: string(model.RoleUser), Content: fmt.Sprintf(refineInstruction, prompt)}},
			Mode:     model.ResponseModeQuick,
			WorkMode: mode,
		})
		if err == nil && strings.TrimSpace(refined) != "" {
			return strings.TrimSpace(refined), nil
		}
		r.logger.Warn("prompt refinement failed, using template", zap.Error(err))
	}

	return structuredPrompt(prompt, mode), nil
}

func structuredPrompt(prompt string, mode model.WorkMode) string {
	var b strings.Builder
	b.WriteString("Goal: ")
	b.WriteString(prompt)
	b.WriteString("\n")

	switch mode {
	case model.WorkModeQuick:
		b.WriteString("Format: a short, direct answer.")
	case model.WorkModeResearch:
		b.WriteString("Format: survey the main perspectives, cite the evidence for each, and note open questions.")
	case model.WorkModeCreate:
		b.WriteString("Format: produce a concrete draft, then suggest two variations.")
	default:
		b.WriteString("Format: reason through the trade-offs before giving a recommendation.")
	}
	return b.String()
}
