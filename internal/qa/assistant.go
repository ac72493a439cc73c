// Package qa answers questions about an archived rulebook from the chunks of
// its text most similar to the question.
package qa

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/rulebook-cli/internal/llm"
	"github.com/sells-group/rulebook-cli/internal/model"
	"github.com/sells-group/rulebook-cli/pkg/gemini"
)

const defaultTopK = 4

// DocumentSource returns the archived rulebook text for a key.
type DocumentSource interface {
	DocumentText(ctx context.Context, key model.Key) (string, error)
}

// Answer is the reply to one question.
type Answer struct {
	Answer  string `json:"answer"`
	Sources []Hit  `json:"sources,omitempty"`
}

// Assistant caches one Index per key and answers questions against it.
type Assistant struct {
	docs DocumentSource
	emb  Embedder
	llm  llm.Completer
	topK int

	mu      sync.Mutex
	indexes map[model.Key]*Index
	builds  singleflight.Group
}

// NewAssistant creates an Assistant. topK <= 0 uses the default.
func NewAssistant(docs DocumentSource, emb Embedder, completer llm.Completer, topK int) *Assistant {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Assistant{
		docs:    docs,
		emb:     emb,
		llm:     completer,
		topK:    topK,
		indexes: make(map[model.Key]*Index),
	}
}

// Ask answers question about key's rulebook with a single completion.
func (a *Assistant) Ask(ctx context.Context, key model.Key, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, eris.New("qa: empty question")
	}
	ix, err := a.index(ctx, key)
	if err != nil {
		return nil, err
	}

	qv, err := a.emb.Embed(ctx, []string{question}, gemini.TaskRetrievalQuery)
	if err != nil {
		return nil, eris.Wrap(err, "qa: embed question")
	}
	if len(qv) != 1 {
		return nil, eris.Errorf("qa: got %d vectors for the question", len(qv))
	}
	hits := ix.Search(qv[0], a.topK)

	out, err := a.llm.Complete(ctx, buildPrompt(key, question, hits))
	if err != nil {
		return nil, eris.Wrap(err, "qa: complete")
	}
	zap.L().Info("qa: answered",
		zap.String("season", string(key.Season)),
		zap.Int("year", key.Year),
		zap.Int("chunks", len(hits)),
	)
	return &Answer{Answer: strings.TrimSpace(out), Sources: hits}, nil
}

// Invalidate drops the cached index for key.
func (a *Assistant) Invalidate(key model.Key) {
	a.mu.Lock()
	delete(a.indexes, key)
	a.mu.Unlock()
}

// Rebuild re-reads and re-embeds key's document.
func (a *Assistant) Rebuild(ctx context.Context, key model.Key) (*Index, error) {
	a.Invalidate(key)
	return a.index(ctx, key)
}

func (a *Assistant) index(ctx context.Context, key model.Key) (*Index, error) {
	a.mu.Lock()
	ix, ok := a.indexes[key]
	a.mu.Unlock()
	if ok {
		return ix, nil
	}

	v, err, _ := a.builds.Do(key.String(), func() (any, error) {
		text, err := a.docs.DocumentText(ctx, key)
		if err != nil {
			return nil, err
		}
		ix, err := BuildIndex(ctx, key, text, a.emb)
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		a.indexes[key] = ix
		a.mu.Unlock()
		zap.L().Info("qa: index built", zap.String("key", key.String()), zap.Int("chunks", len(ix.Chunks)))
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

func buildPrompt(key model.Key, question string, hits []Hit) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Answer the question using only these excerpts from the %s %d rulebook. ", key.Season.Title(), key.Year)
	sb.WriteString("If the excerpts do not contain the answer, say so.\n\n")
	for i, h := range hits {
		fmt.Fprintf(&sb, "Excerpt %d:\n%s\n\n", i+1, h.Chunk)
	}
	fmt.Fprintf(&sb, "Question: %s", question)
	return sb.String()
}
