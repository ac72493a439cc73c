package qa

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rulebook-cli/internal/model"
	"github.com/sells-group/rulebook-cli/pkg/gemini"
)

// embedBatchSize bounds the texts sent in one embedding request.
const embedBatchSize = 100

// Embedder turns texts into vectors. taskType distinguishes documents from
// queries for providers that embed them differently.
type Embedder interface {
	Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error)
}

// Index holds the embedded chunks of one season's rulebook.
type Index struct {
	Key     model.Key
	Chunks  []string
	vectors [][]float32
	BuiltAt time.Time
}

// Hit is a chunk ranked against a query.
type Hit struct {
	Chunk string  `json:"chunk"`
	Score float64 `json:"score"`
}

// BuildIndex chunks text and embeds every chunk.
func BuildIndex(ctx context.Context, key model.Key, text string, emb Embedder) (*Index, error) {
	chunks := Chunk(text, DefaultChunkSize)
	if len(chunks) == 0 {
		return nil, eris.Errorf("qa: no text to index for %s", key)
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		vs, err := emb.Embed(ctx, chunks[start:end], gemini.TaskRetrievalDocument)
		if err != nil {
			return nil, eris.Wrap(err, "qa: embed chunks")
		}
		if len(vs) != end-start {
			return nil, eris.Errorf("qa: got %d vectors for %d chunks", len(vs), end-start)
		}
		vectors = append(vectors, vs...)
	}

	return &Index{Key: key, Chunks: chunks, vectors: vectors, BuiltAt: time.Now()}, nil
}

// Search returns the k chunks most similar to query, best first.
func (ix *Index) Search(query []float32, k int) []Hit {
	hits := make([]Hit, len(ix.Chunks))
	for i, c := range ix.Chunks {
		hits[i] = Hit{Chunk: c, Score: cosine(query, ix.vectors[i])}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if k > 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
