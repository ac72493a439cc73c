package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rulebook-cli/internal/model"
	"github.com/sells-group/rulebook-cli/internal/store"
)

// StatusResult reports how far a key has progressed.
type StatusResult struct {
	Exists bool                    `json:"exists" yaml:"exists"`
	Stage  model.Stage             `json:"stage" yaml:"stage"`
	Record *model.TournamentRecord `json:"data,omitempty" yaml:"data,omitempty"`
}

// Status reports the stage of the key's most advanced record. It never
// writes.
func (p *Pipeline) Status(ctx context.Context, key model.Key) (*StatusResult, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	records, err := p.store.FindRecords(ctx, store.KeyFilter(key))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: status find records")
	}
	rec := model.MostAdvanced(records)
	return &StatusResult{
		Exists: rec != nil,
		Stage:  model.StageOf(rec),
		Record: rec,
	}, nil
}
