// Package gemini wraps the Google GenAI SDK for text generation and
// embeddings.
package gemini

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultEmbedModel = "gemini-embedding-001"
)

// Embedding task types understood by the embedContent API.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// Client is a thin wrapper over a genai client bound to one generation model
// and one embedding model.
type Client struct {
	client     *genai.Client
	model      string
	embedModel string
}

// Option configures a Client.
type Option func(*options)

type options struct {
	model      string
	embedModel string
	baseURL    string
}

// WithModel sets the generation model.
func WithModel(m string) Option {
	return func(o *options) {
		if m != "" {
			o.model = m
		}
	}
}

// WithEmbedModel sets the embedding model.
func WithEmbedModel(m string) Option {
	return func(o *options) {
		if m != "" {
			o.embedModel = m
		}
	}
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: api key is required")
	}
	o := options{model: defaultModel, embedModel: defaultEmbedModel}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if o.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &Client{client: client, model: o.model, embedModel: o.embedModel}, nil
}

// Model returns the generation model name.
func (c *Client) Model() string { return c.model }

// Generate runs one generateContent call with an optional system instruction
// and returns the response text.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", eris.Wrap(err, "gemini: generate content")
	}
	if u := resp.UsageMetadata; u != nil {
		zap.L().Info("gemini usage",
			zap.String("model", c.model),
			zap.Int32("input_tokens", u.PromptTokenCount),
			zap.Int32("output_tokens", u.CandidatesTokenCount),
		)
	}
	text := resp.Text()
	if text == "" {
		return "", eris.New("gemini: empty response")
	}
	return text, nil
}

// Embed returns one embedding per text, in order.
func (c *Client) Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	result, err := c.client.Models.EmbedContent(ctx, c.embedModel, contents, &genai.EmbedContentConfig{
		TaskType: taskType,
	})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: embed content")
	}
	if len(result.Embeddings) != len(texts) {
		return nil, eris.Errorf("gemini: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}
