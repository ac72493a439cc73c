package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rulebook-cli/internal/model"
)

// ErrNotFound is returned when an update targets an unknown record id.
var ErrNotFound = eris.New("store: record not found")

// Filter selects tournament records. Zero-valued fields match everything.
type Filter struct {
	Season model.Season `json:"season,omitempty"`
	Year   int          `json:"year,omitempty"`
	Source string       `json:"source,omitempty"`
}

// KeyFilter returns a filter matching every record of key.
func KeyFilter(key model.Key) Filter {
	return Filter{Season: key.Season, Year: key.Year}
}

// Store is the document store behind the rulebook pipeline.
//
// There is no uniqueness constraint on (season, year, source): callers
// deduplicate with FindRecords before InsertRecord, which is best-effort
// under concurrent discovery.
type Store interface {
	// FindRecords returns matching records, oldest first.
	FindRecords(ctx context.Context, f Filter) ([]model.TournamentRecord, error)
	// InsertRecord persists r and returns its id. An empty r.ID is assigned.
	InsertRecord(ctx context.Context, r *model.TournamentRecord) (string, error)
	// UpdateRecord applies the non-nil fields of p. The archived document URL
	// is write-once: it is only stored while the column is empty.
	UpdateRecord(ctx context.Context, id string, p model.RecordPatch) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
