// Package pipeline moves a (season, year) key through discovery, archival
// and extraction of its tournament rulebook.
package pipeline

import (
	"time"

	"github.com/sells-group/rulebook-cli/internal/blob"
	"github.com/sells-group/rulebook-cli/internal/classify"
	"github.com/sells-group/rulebook-cli/internal/config"
	"github.com/sells-group/rulebook-cli/internal/fetcher"
	"github.com/sells-group/rulebook-cli/internal/llm"
	"github.com/sells-group/rulebook-cli/internal/model"
	"github.com/sells-group/rulebook-cli/internal/ocr"
	"github.com/sells-group/rulebook-cli/internal/store"
)

const defaultConcurrency = 4

// Options tunes discovery.
type Options struct {
	SearchDomain  string
	ExcludeTokens []string
	Concurrency   int
	// Now stamps archive paths. Defaults to time.Now.
	Now func() time.Time
}

// OptionsFromConfig builds Options from the discovery config section.
func OptionsFromConfig(cfg config.DiscoveryConfig) Options {
	return Options{
		SearchDomain:  cfg.SearchDomain,
		ExcludeTokens: cfg.ExcludeTokens,
		Concurrency:   cfg.Concurrency,
	}
}

// Deps are the collaborators a Pipeline calls. Search is only needed by
// Discover; OCR and LLM only by Extract. Reader is optional and re-fetches
// source pages the direct fetch found blocked.
type Deps struct {
	Store      store.Store
	Search     Searcher
	Fetcher    fetcher.Getter
	Reader     fetcher.Getter
	Blobs      blob.Store
	OCR        ocr.Extractor
	LLM        llm.Completer
	Classifier *classify.Classifier
}

// Pipeline runs the rulebook stages against its collaborators.
type Pipeline struct {
	store      store.Store
	search     Searcher
	fetch      fetcher.Getter
	reader     fetcher.Getter
	blobs      blob.Store
	ocr        ocr.Extractor
	llm        llm.Completer
	classifier *classify.Classifier
	opts       Options
}

// New creates a Pipeline. Missing options fall back to defaults.
func New(d Deps, opts Options) *Pipeline {
	if opts.SearchDomain == "" {
		opts.SearchDomain = classify.DefaultSearchDomain
	}
	if opts.ExcludeTokens == nil {
		opts.ExcludeTokens = classify.DefaultExcludeTokens
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if d.Classifier == nil {
		d.Classifier = classify.NewClassifier(nil)
	}
	return &Pipeline{
		store:      d.Store,
		search:     d.Search,
		fetch:      d.Fetcher,
		reader:     d.Reader,
		blobs:      d.Blobs,
		ocr:        d.OCR,
		llm:        d.LLM,
		classifier: d.Classifier,
		opts:       opts,
	}
}

func validateKey(key model.Key) error {
	if _, err := model.ParseSeason(string(key.Season)); err != nil {
		return &ValidationError{Field: "season", Err: err}
	}
	if key.Year <= 0 {
		return &ValidationError{Field: "year"}
	}
	return nil
}
