package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/rulebook-cli/internal/classify"
	"github.com/sells-group/rulebook-cli/internal/model"
	"github.com/sells-group/rulebook-cli/internal/scrape"
	"github.com/sells-group/rulebook-cli/internal/store"
)

// DiscoverResult is the outcome of one discovery pass.
type DiscoverResult struct {
	AlreadyExists bool                     `json:"exists" yaml:"exists"`
	Message       string                   `json:"message" yaml:"message"`
	Answer        string                   `json:"answer,omitempty" yaml:"answer,omitempty"`
	Sources       []string                 `json:"sources" yaml:"sources"`
	Records       []model.TournamentRecord `json:"savedData" yaml:"savedData"`
}

// candidate is one fetched source page and its classified links.
type candidate struct {
	source  string
	buckets model.Buckets
}

// Discover searches for the key's announcement pages, classifies their links
// and persists one record per page with at least one classified link. When
// any record already exists for the key nothing is searched or written.
//
// The existence checks and inserts are not transactional: two concurrent
// calls for a new key can both insert. Later stages work per record, so
// duplicates only cost extra work.
func (p *Pipeline) Discover(ctx context.Context, key model.Key) (*DiscoverResult, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("season", string(key.Season)), zap.Int("year", key.Year))

	existing, err := p.store.FindRecords(ctx, store.KeyFilter(key))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: discover find records")
	}
	if len(existing) > 0 {
		log.Info("pipeline: discover skipped, records exist", zap.Int("records", len(existing)))
		return &DiscoverResult{
			AlreadyExists: true,
			Message:       fmt.Sprintf("Tournament data for %s %d already exists", key.Season.Title(), key.Year),
			Sources:       []string{},
			Records:       existing,
		}, nil
	}

	if p.search == nil {
		return nil, eris.New("pipeline: discover requires a search provider")
	}
	query := classify.Query(key, p.opts.SearchDomain)
	sr, err := p.search.Search(ctx, query)
	if err != nil {
		return nil, &UpstreamError{Provider: "search", Err: err}
	}

	sources := classify.FilterCitations(sr.Citations, key, p.opts.ExcludeTokens)
	log.Info("pipeline: search complete",
		zap.Int("citations", len(sr.Citations)),
		zap.Int("sources", len(sources)),
	)

	candidates := p.classifySources(ctx, key, sources)

	records := []model.TournamentRecord{}
	for _, c := range candidates {
		dup, err := p.store.FindRecords(ctx, store.Filter{Season: key.Season, Year: key.Year, Source: c.source})
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: discover find source %s", c.source)
		}
		if len(dup) > 0 {
			log.Info("pipeline: source already recorded", zap.String("url", c.source), zap.String("record_id", dup[0].ID))
			continue
		}

		rec := model.RecordFromBuckets(key, c.source, c.buckets)
		if _, err := p.store.InsertRecord(ctx, &rec); err != nil {
			return nil, eris.Wrapf(err, "pipeline: discover insert %s", c.source)
		}
		log.Info("pipeline: record created",
			zap.String("record_id", rec.ID),
			zap.String("url", c.source),
			zap.String("document_link", rec.DocumentLink),
		)
		records = append(records, rec)
	}

	msg := fmt.Sprintf("Saved %d tournament record(s) for %s %d", len(records), key.Season.Title(), key.Year)
	if len(records) == 0 {
		msg = fmt.Sprintf("No tournament documents found for %s %d", key.Season.Title(), key.Year)
	}
	if sources == nil {
		sources = []string{}
	}
	return &DiscoverResult{
		Message: msg,
		Answer:  sr.Answer,
		Sources: sources,
		Records: records,
	}, nil
}

// classifySources fetches every source concurrently and returns the pages
// that yielded links, in source order. Per-URL failures are logged and
// skipped.
func (p *Pipeline) classifySources(ctx context.Context, key model.Key, sources []string) []candidate {
	results := make([]*candidate, len(sources))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, src := range sources {
		g.Go(func() error {
			buckets, err := p.classifyPage(gCtx, src)
			if err != nil {
				zap.L().Warn("pipeline: source skipped",
					zap.String("season", string(key.Season)),
					zap.Int("year", key.Year),
					zap.String("url", src),
					zap.Error(err),
				)
				return nil
			}
			if buckets.Empty() {
				zap.L().Info("pipeline: source has no classified links", zap.String("url", src))
				return nil
			}
			results[i] = &candidate{source: src, buckets: buckets}
			return nil
		})
	}
	_ = g.Wait()

	var out []candidate
	for _, c := range results {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

func (p *Pipeline) classifyPage(ctx context.Context, src string) (model.Buckets, error) {
	resp, err := p.fetch.Get(ctx, src)
	if err != nil {
		return nil, &FetchError{URL: src, Err: err}
	}
	if blocked, kind := scrape.Blocked(resp); blocked {
		if p.reader == nil {
			return nil, &FetchError{URL: src, StatusCode: resp.StatusCode, Err: eris.Errorf("blocked (%s)", kind)}
		}
		zap.L().Info("pipeline: source blocked, retrying through reader", zap.String("url", src), zap.String("block", string(kind)))
		if resp, err = p.reader.Get(ctx, src); err != nil {
			return nil, &FetchError{URL: src, Err: err}
		}
	}
	if !resp.OK() {
		return nil, &FetchError{URL: src, StatusCode: resp.StatusCode}
	}

	pageURL := resp.URL
	if pageURL == "" {
		pageURL = src
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse page url %s", pageURL)
	}
	anchors, err := classify.ExtractAnchors(bytes.NewReader(resp.Body), base)
	if err != nil {
		return nil, err
	}
	return p.classifier.Classify(anchors), nil
}
