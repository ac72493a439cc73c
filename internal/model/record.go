package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Season is the half of the academic year a tournament runs in.
type Season string

const (
	SeasonFall   Season = "fall"
	SeasonSpring Season = "spring"
)

// ParseSeason normalizes s and rejects anything other than fall or spring.
func ParseSeason(s string) (Season, error) {
	switch Season(strings.ToLower(strings.TrimSpace(s))) {
	case SeasonFall:
		return SeasonFall, nil
	case SeasonSpring:
		return SeasonSpring, nil
	default:
		return "", eris.Errorf("invalid season %q: must be fall or spring", s)
	}
}

// Title returns the capitalized season name, e.g. "Spring".
func (s Season) Title() string {
	return cases.Title(language.English).String(string(s))
}

// Key identifies every record belonging to one tournament season.
type Key struct {
	Season Season `json:"season" yaml:"season"`
	Year   int    `json:"year" yaml:"year"`
}

// Validate reports whether the key is usable for a pipeline call.
func (k Key) Validate() error {
	if _, err := ParseSeason(string(k.Season)); err != nil {
		return err
	}
	if k.Year <= 0 {
		return eris.Errorf("invalid year %d", k.Year)
	}
	return nil
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.Season, k.Year)
}

// TournamentRecord is the persisted state for one source page of a season.
type TournamentRecord struct {
	ID                  string          `json:"id" yaml:"id"`
	Season              Season          `json:"season" yaml:"season"`
	Year                int             `json:"year" yaml:"year"`
	Source              string          `json:"source" yaml:"source"`
	DocumentLink        string          `json:"documentLink,omitempty" yaml:"documentLink,omitempty"`
	ArchivedDocumentURL string          `json:"archivedDocumentUrl,omitempty" yaml:"archivedDocumentUrl,omitempty"`
	InstructionsLink    string          `json:"instructionsLink,omitempty" yaml:"instructionsLink,omitempty"`
	RegistrationLink    string          `json:"registrationLink,omitempty" yaml:"registrationLink,omitempty"`
	FairPlayLink        string          `json:"fairPlayLink,omitempty" yaml:"fairPlayLink,omitempty"`
	PlatformLink        string          `json:"platformLink,omitempty" yaml:"platformLink,omitempty"`
	ExtractedInfo       *TournamentInfo `json:"extractedInfo,omitempty" yaml:"extractedInfo,omitempty"`
	CreatedAt           time.Time       `json:"createdAt" yaml:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt" yaml:"updatedAt"`
}

// Key returns the (season, year) key of the record.
func (r TournamentRecord) Key() Key {
	return Key{Season: r.Season, Year: r.Year}
}

// RecordFromBuckets builds a candidate record from one page's classified
// links. Only the first link of each bucket is kept.
func RecordFromBuckets(key Key, source string, b Buckets) TournamentRecord {
	return TournamentRecord{
		Season:           key.Season,
		Year:             key.Year,
		Source:           source,
		DocumentLink:     b.First(BucketDocument),
		InstructionsLink: b.First(BucketInstructions),
		RegistrationLink: b.First(BucketRegistration),
		FairPlayLink:     b.First(BucketFairPlay),
		PlatformLink:     b.First(BucketPlatform),
	}
}

// RecordPatch carries the fields later stages are allowed to write.
// Nil fields are left untouched.
type RecordPatch struct {
	ArchivedDocumentURL *string
	ExtractedInfo       *TournamentInfo
}

// RecordUpdate reports the archival outcome for one record.
type RecordUpdate struct {
	ID                  string `json:"id" yaml:"id"`
	ArchivedDocumentURL string `json:"pdfStorageUrl" yaml:"pdfStorageUrl"`
	AlreadyExists       bool   `json:"alreadyExists,omitempty" yaml:"alreadyExists,omitempty"`
}
