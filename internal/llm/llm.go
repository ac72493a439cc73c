// Package llm adapts language-model providers to a single prompt-in,
// text-out interface.
package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rulebook-cli/internal/config"
	"github.com/sells-group/rulebook-cli/pkg/anthropic"
	"github.com/sells-group/rulebook-cli/pkg/gemini"
)

// Completer returns a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SystemPrompt is sent as the cached system block on every completion.
const SystemPrompt = "You read collegiate chess league rulebooks and answer precisely from the document text you are given. " +
	"When asked for JSON, reply with JSON only."

// NewCompleter builds the completer selected by cfg.LLM.Provider.
func NewCompleter(ctx context.Context, cfg *config.Config) (Completer, error) {
	switch cfg.LLM.Provider {
	case "anthropic", "":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("llm: anthropic provider requires anthropic.key")
		}
		return NewAnthropicCompleter(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, cfg.Anthropic.MaxTokens), nil
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key,
			gemini.WithModel(cfg.Gemini.Model),
			gemini.WithEmbedModel(cfg.Gemini.EmbedModel),
		)
		if err != nil {
			return nil, eris.Wrap(err, "llm: gemini client")
		}
		return NewGeminiCompleter(client), nil
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.LLM.Provider)
	}
}

// StripCodeFence removes a wrapping markdown code fence, with or without a
// language tag, from text.
func StripCodeFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:]
	} else {
		t = strings.TrimPrefix(t, "json")
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}
