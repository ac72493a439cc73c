package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rulebook-cli/internal/blob"
	"github.com/sells-group/rulebook-cli/internal/classify"
	"github.com/sells-group/rulebook-cli/internal/fetcher"
	"github.com/sells-group/rulebook-cli/internal/llm"
	"github.com/sells-group/rulebook-cli/internal/ocr"
	"github.com/sells-group/rulebook-cli/internal/pipeline"
	"github.com/sells-group/rulebook-cli/internal/qa"
	"github.com/sells-group/rulebook-cli/internal/store"
	"github.com/sells-group/rulebook-cli/pkg/gemini"
	"github.com/sells-group/rulebook-cli/pkg/jina"
	"github.com/sells-group/rulebook-cli/pkg/perplexity"
)

// pipelineEnv holds the store, clients and pipeline a command needs.
type pipelineEnv struct {
	Store    store.Store
	Blobs    *blob.FSStore
	Pipeline *pipeline.Pipeline
	Asker    *qa.Assistant // nil without a Gemini key
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates the config for modes, opens and migrates the store,
// and wires every client the config has credentials for. Callers should
// defer env.Close().
func initPipeline(ctx context.Context, modes ...string) (*pipelineEnv, error) {
	for _, m := range append([]string{"store"}, modes...) {
		if err := cfg.Validate(m); err != nil {
			return nil, err
		}
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	blobs, err := blob.NewDiskStore(cfg.Blob.Root, cfg.Blob.PublicBaseURL)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	deps := pipeline.Deps{
		Store: st,
		Fetcher: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:    cfg.Fetch.UserAgent,
			Timeout:      time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxBodyBytes: int64(cfg.Fetch.MaxBodyMB) << 20,
			RateLimiters: fetcher.DefaultRateLimiters(),
		}),
		Blobs:      blobs,
		Classifier: classify.NewClassifier(cfg.Discovery.PlatformTokens),
	}

	if cfg.Jina.Enabled {
		deps.Reader = fetcher.NewReaderGetter(jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL)))
	}

	if cfg.Perplexity.Key != "" {
		deps.Search = pipeline.NewPerplexitySearcher(perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		))
	}

	if ex, err := ocr.NewExtractor(cfg.OCR); err != nil {
		zap.L().Warn("text extraction unavailable", zap.Error(err))
	} else {
		deps.OCR = ex
	}

	if completer, err := llm.NewCompleter(ctx, cfg); err != nil {
		zap.L().Warn("language model unavailable", zap.Error(err))
	} else {
		deps.LLM = completer
	}

	env := &pipelineEnv{
		Store:    st,
		Blobs:    blobs,
		Pipeline: pipeline.New(deps, pipeline.OptionsFromConfig(cfg.Discovery)),
	}

	if cfg.Gemini.Key != "" && deps.LLM != nil {
		embedder, err := gemini.NewClient(ctx, cfg.Gemini.Key,
			gemini.WithModel(cfg.Gemini.Model),
			gemini.WithEmbedModel(cfg.Gemini.EmbedModel),
		)
		if err != nil {
			zap.L().Warn("question answering unavailable", zap.Error(err))
		} else {
			env.Asker = qa.NewAssistant(env.Pipeline, embedder, deps.LLM, 0)
		}
	}

	return env, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "rulebook.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
