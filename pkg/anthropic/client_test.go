package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCost(t *testing.T) {
	tests := []struct {
		name  string
		model string
		usage TokenUsage
		want  float64
	}{
		{"sonnet", "claude-sonnet-4-5-20250929", TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}, 18.00},
		{"haiku", "claude-haiku-4-5-20251001", TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}, 6.00},
		// 1.50 in + 1.50 out + 0.75 cache write + 0.09 cache read
		{"cached rulebook", "claude-sonnet-4-5-20250929", TokenUsage{
			InputTokens:      500_000,
			OutputTokens:     100_000,
			CacheWriteTokens: 200_000,
			CacheReadTokens:  300_000,
		}, 3.84},
		{"unknown model", "other", TokenUsage{InputTokens: 1_000_000}, 0},
		{"zero", "claude-sonnet-4-5-20250929", TokenUsage{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.usage.Cost(tt.model), 0.001)
		})
	}
}

func TestLog_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		TokenUsage{InputTokens: 100, OutputTokens: 50}.Log("claude-sonnet-4-5-20250929", "extract")
		TokenUsage{}.Log("other", "")
	})
}

func TestFromSDKMessage(t *testing.T) {
	c := fromSDKMessage(&sdk.Message{
		StopReason: "end_turn",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: `{"logistics":`},
			{Type: "thinking", Text: "ignored"},
			{Type: "text", Text: `{}}`},
		},
		Usage: sdk.Usage{InputTokens: 100, OutputTokens: 50, CacheCreationInputTokens: 2000, CacheReadInputTokens: 3000},
	})
	assert.Equal(t, `{"logistics":{}}`, c.Text)
	assert.Equal(t, "end_turn", c.StopReason)
	assert.Equal(t, TokenUsage{InputTokens: 100, OutputTokens: 50, CacheWriteTokens: 2000, CacheReadTokens: 3000}, c.Usage)
}

type captured struct {
	System []struct {
		Text         string `json:"text"`
		CacheControl struct {
			Type string `json:"type"`
			TTL  string `json:"ttl"`
		} `json:"cache_control"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
	MaxTokens int64 `json:"max_tokens"`
}

func messageServer(t *testing.T, status int, body map[string]any, got *captured) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	}))
}

func TestComplete(t *testing.T) {
	var got captured
	ts := messageServer(t, http.StatusOK, map[string]any{
		"id":          "msg_1",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": "Round 1 is September 14."}},
		"model":       "claude-sonnet-4-5-20250929",
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5, "cache_creation_input_tokens": 4000},
	}, &got)
	defer ts.Close()

	c, err := NewClient("test-key", option.WithBaseURL(ts.URL)).Complete(context.Background(), Request{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 1024,
		System:    "You read rulebooks.",
		CacheTTL:  "1h",
		Prompt:    "When is round 1?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Round 1 is September 14.", c.Text)
	assert.Equal(t, int64(4000), c.Usage.CacheWriteTokens)

	require.Len(t, got.System, 1)
	assert.Equal(t, "You read rulebooks.", got.System[0].Text)
	assert.Equal(t, "ephemeral", got.System[0].CacheControl.Type)
	assert.Equal(t, "1h", got.System[0].CacheControl.TTL)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "When is round 1?", got.Messages[0].Content[0].Text)
	assert.Equal(t, int64(1024), got.MaxTokens)
}

func TestNewParams_DefaultTTLAndNoSystem(t *testing.T) {
	p := newParams(Request{Model: "m", MaxTokens: 1, System: "s", Prompt: "p"})
	require.Len(t, p.System, 1)
	assert.Equal(t, DefaultCacheTTL, string(p.System[0].CacheControl.TTL))

	assert.Empty(t, newParams(Request{Model: "m", MaxTokens: 1, Prompt: "p"}).System)
}

func TestComplete_Error(t *testing.T) {
	ts := messageServer(t, http.StatusInternalServerError, map[string]any{
		"type":  "error",
		"error": map[string]any{"type": "api_error", "message": "Internal server error"},
	}, nil)
	defer ts.Close()

	_, err := NewClient("test-key", option.WithBaseURL(ts.URL)).Complete(context.Background(), Request{
		Model: "claude-sonnet-4-5-20250929", MaxTokens: 1024, Prompt: "Hello",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
}
