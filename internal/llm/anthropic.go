package llm

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rulebook-cli/internal/resilience"
	"github.com/sells-group/rulebook-cli/pkg/anthropic"
)

const (
	defaultMaxTokens = 4096
	statusOverloaded = 529
)

// AnthropicCompleter implements Completer over the Messages API.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicCompleter creates an AnthropicCompleter.
func NewAnthropicCompleter(client anthropic.Client, model string, maxTokens int64) *AnthropicCompleter {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &AnthropicCompleter{client: client, model: model, maxTokens: maxTokens}
}

// Complete sends prompt as a single user message.
func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Complete(ctx, anthropic.Request{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    SystemPrompt,
		Prompt:    prompt,
	})
	if err != nil {
		return "", eris.Wrap(markTransient(err), "llm: anthropic complete")
	}
	resp.Usage.Log(c.model, "complete")

	text := resp.Text
	if strings.TrimSpace(text) == "" {
		return "", eris.Errorf("llm: empty completion (stop reason %q)", resp.StopReason)
	}
	return text, nil
}

// markTransient tags API errors with a retryable status so callers that
// retry can tell them apart from permanent failures.
func markTransient(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) && (resilience.IsTransientHTTPStatus(apiErr.StatusCode) || apiErr.StatusCode == statusOverloaded) {
		return resilience.NewTransientError(err, apiErr.StatusCode)
	}
	return err
}
