package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/rulebook-cli/internal/model"
	"github.com/sells-group/rulebook-cli/internal/resilience"
)

// RunResult collects the outcome of each stage of a full run.
type RunResult struct {
	Discover *DiscoverResult `json:"discover" yaml:"discover"`
	Archive  *ArchiveResult  `json:"archive,omitempty" yaml:"archive,omitempty"`
	Extract  *ExtractResult  `json:"extract,omitempty" yaml:"extract,omitempty"`
	Status   *StatusResult   `json:"status" yaml:"status"`
}

// Run chains Discover, Archive and Extract for key. Each stage is retried
// with cfg when it fails with a retryable error. Stages already complete
// are no-ops, so Run can be repeated after a failure.
func (p *Pipeline) Run(ctx context.Context, key model.Key, cfg resilience.RetryConfig) (*RunResult, error) {
	cfg.ShouldRetry = Retryable
	stageCfg := func(stage string) resilience.RetryConfig {
		c := cfg
		if c.OnRetry == nil {
			c.OnRetry = resilience.RetryLogger(stage,
				zap.String("season", string(key.Season)),
				zap.Int("year", key.Year),
			)
		}
		return c
	}

	res := &RunResult{}
	var err error

	if res.Discover, err = resilience.DoVal(ctx, stageCfg("discover"), func(ctx context.Context) (*DiscoverResult, error) {
		return p.Discover(ctx, key)
	}); err != nil {
		return res, err
	}
	if !res.Discover.AlreadyExists && len(res.Discover.Records) == 0 {
		res.Status, err = p.Status(ctx, key)
		return res, err
	}

	if res.Archive, err = resilience.DoVal(ctx, stageCfg("archive"), func(ctx context.Context) (*ArchiveResult, error) {
		return p.Archive(ctx, key)
	}); err != nil {
		return res, err
	}

	if res.Status, err = p.Status(ctx, key); err != nil {
		return res, err
	}
	if res.Status.Stage == model.StageExtracted || res.Status.Stage.Rank() < model.StageArchived.Rank() {
		zap.L().Info("pipeline: run stopping before extract", zap.String("stage", string(res.Status.Stage)))
		return res, nil
	}

	if res.Extract, err = resilience.DoVal(ctx, stageCfg("extract"), func(ctx context.Context) (*ExtractResult, error) {
		return p.Extract(ctx, key)
	}); err != nil {
		return res, err
	}
	res.Status, err = p.Status(ctx, key)
	return res, err
}
