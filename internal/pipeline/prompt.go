package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rulebook-cli/internal/llm"
	"github.com/sells-group/rulebook-cli/internal/model"
)

// maxDocumentChars bounds the document text embedded in one prompt.
const maxDocumentChars = 180_000

const extractionPrompt = `Extract the tournament schedule and eligibility rules from the rulebook below.

Reply with a single JSON object and nothing else, matching this shape exactly:

{
  "logistics": {
    "registration_open": "<date>",
    "registration_deadline": "<date>",
    "fair_play_deadline": "<date>",
    "season_start": "<date>"
  },
  "regular_season": [
    {"title": "<round name, e.g. Week 1>", "date": "<date>"}
  ],
  "divisions": [
    {"division": "%s", "playoff_rounds": [%s]},
    {"division": "%s", "playoff_rounds": [%s]}
  ],
  "requirements": {
    "minimum_account_age": <number of days>,
    "minimum_games": <number of rated games>
  }
}

Rules:
- Every <date> is formatted like "%s %s" (for example "%s").
- List regular season rounds in chronological order.
- Use the playoff round titles shown above, in that order.
- Use "" for a date the document does not state and 0 for a missing number.

Rulebook text:
"""
%s
"""`

func roundSkeleton(titles []string) string {
	parts := make([]string, len(titles))
	for i, t := range titles {
		parts[i] = fmt.Sprintf(`{"title": %q, "date": "<date>"}`, t)
	}
	return strings.Join(parts, ", ")
}

// BuildExtractionPrompt embeds the document text and the target JSON schema
// in one prompt.
func BuildExtractionPrompt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > maxDocumentChars {
		cut := maxDocumentChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return fmt.Sprintf(extractionPrompt,
		model.DivisionOne, roundSkeleton(model.ExpectedPlayoffRounds[model.DivisionOne]),
		model.DivisionTwoPlus, roundSkeleton(model.ExpectedPlayoffRounds[model.DivisionTwoPlus]),
		model.DateLayout, model.TimeZoneAbbrev, "January 15, 2026 7:00 PM "+model.TimeZoneAbbrev,
		text,
	)
}

var requiredSections = []string{"logistics", "regular_season", "divisions", "requirements"}

// ParseTournamentInfo decodes model output into TournamentInfo. A wrapping
// code fence is removed first. Missing sections or fields outside the schema
// are rejected.
func ParseTournamentInfo(out string) (*model.TournamentInfo, error) {
	raw := []byte(llm.StripCodeFence(out))

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(raw, &sections); err != nil {
		return nil, &ParseError{Err: eris.Wrap(err, "decode json object")}
	}
	for _, k := range requiredSections {
		v, ok := sections[k]
		if !ok || string(v) == "null" {
			return nil, &ParseError{Err: eris.Errorf("missing %q", k)}
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var info model.TournamentInfo
	if err := dec.Decode(&info); err != nil {
		return nil, &ParseError{Err: eris.Wrap(err, "decode tournament info")}
	}
	return &info, nil
}

// ScheduleWarnings lists deviations from the expected schedule shape that
// are worth logging but do not fail extraction.
func ScheduleWarnings(info *model.TournamentInfo) []string {
	var warnings []string
	for _, label := range []string{model.DivisionOne, model.DivisionTwoPlus} {
		d := info.Division(label)
		if d == nil {
			warnings = append(warnings, fmt.Sprintf("division %s missing", label))
			continue
		}
		want := model.ExpectedPlayoffRounds[label]
		if len(d.PlayoffRounds) != len(want) {
			warnings = append(warnings, fmt.Sprintf("division %s has %d playoff rounds, want %d", label, len(d.PlayoffRounds), len(want)))
			continue
		}
		for i, r := range d.PlayoffRounds {
			if r.Title != want[i] {
				warnings = append(warnings, fmt.Sprintf("division %s round %d is %q, want %q", label, i+1, r.Title, want[i]))
			}
		}
	}
	if len(info.RegularSeason) == 0 {
		warnings = append(warnings, "no regular season rounds")
	}
	return warnings
}
