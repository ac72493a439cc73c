package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rulebook-cli/internal/resilience"
	"github.com/sells-group/rulebook-cli/pkg/perplexity"
)

// SearchResult is a provider's answer text and the URLs it cites.
type SearchResult struct {
	Answer    string
	Citations []string
}

// Searcher answers a natural-language query with citations.
type Searcher interface {
	Search(ctx context.Context, query string) (*SearchResult, error)
}

const searchSystemPrompt = "You locate official collegiate chess league announcements. " +
	"Answer briefly and cite the pages that link to the rules document."

// PerplexitySearcher implements Searcher over the Perplexity chat API.
type PerplexitySearcher struct {
	client perplexity.Client
}

// NewPerplexitySearcher creates a PerplexitySearcher.
func NewPerplexitySearcher(client perplexity.Client) *PerplexitySearcher {
	return &PerplexitySearcher{client: client}
}

func (s *PerplexitySearcher) Search(ctx context.Context, query string) (*SearchResult, error) {
	temp := 0.0
	resp, err := s.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: searchSystemPrompt},
			{Role: "user", Content: query},
		},
		Temperature: &temp,
	})
	if err != nil {
		var se *perplexity.StatusError
		if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.StatusCode) {
			return nil, resilience.NewTransientError(err, se.StatusCode)
		}
		return nil, eris.Wrap(err, "search")
	}
	return &SearchResult{
		Answer:    resp.Answer(),
		Citations: resp.CitationURLs(),
	}, nil
}
