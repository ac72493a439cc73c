package model

// Stage is the lifecycle position of a record, derived from which optional
// fields are populated.
type Stage string

const (
	StageNone       Stage = "none"
	StageDiscovered Stage = "discovered"
	StageArchived   Stage = "archived"
	StageExtracted  Stage = "extracted"
)

// StageOf derives the stage of r. A nil record is StageNone.
func StageOf(r *TournamentRecord) Stage {
	switch {
	case r == nil:
		return StageNone
	case r.ExtractedInfo != nil && r.ArchivedDocumentURL != "":
		return StageExtracted
	case r.ArchivedDocumentURL != "":
		return StageArchived
	default:
		return StageDiscovered
	}
}

// Rank orders stages so callers can pick the most advanced record.
func (s Stage) Rank() int {
	switch s {
	case StageDiscovered:
		return 1
	case StageArchived:
		return 2
	case StageExtracted:
		return 3
	default:
		return 0
	}
}

// MostAdvanced returns the record furthest along the lifecycle. Ties go to
// the earliest record in the slice. Returns nil for an empty slice.
func MostAdvanced(records []TournamentRecord) *TournamentRecord {
	var best *TournamentRecord
	for i := range records {
		r := &records[i]
		if best == nil || StageOf(r).Rank() > StageOf(best).Rank() {
			best = r
		}
	}
	return best
}
