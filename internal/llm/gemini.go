package llm

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/sells-group/rulebook-cli/internal/resilience"
)

// Generator is the subset of the Gemini client used for completions.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// GeminiCompleter implements Completer over Gemini generateContent.
type GeminiCompleter struct {
	gen Generator
}

// NewGeminiCompleter creates a GeminiCompleter.
func NewGeminiCompleter(gen Generator) *GeminiCompleter {
	return &GeminiCompleter{gen: gen}
}

func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	text, err := c.gen.Generate(ctx, SystemPrompt, prompt)
	if err != nil {
		return "", eris.Wrap(markGeminiTransient(err), "llm: gemini complete")
	}
	return text, nil
}

// markGeminiTransient tags quota and server errors from the GenAI API as
// retryable.
func markGeminiTransient(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.Code) {
		return resilience.NewTransientError(err, apiErr.Code)
	}
	return err
}
