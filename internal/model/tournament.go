package model

// DateLayout is the time layout every extracted date uses, followed by the
// fixed TimeZoneAbbrev suffix.
const (
	DateLayout     = "January 2, 2006 3:04 PM"
	TimeZoneAbbrev = "ET"
)

// Division labels the extraction schema expects.
const (
	DivisionOne     = "1"
	DivisionTwoPlus = "2+"
)

// ExpectedPlayoffRounds lists the round titles, in order, for each division.
var ExpectedPlayoffRounds = map[string][]string{
	DivisionOne:     {"Round of 16", "Quarterfinals", "Semifinals", "Finals"},
	DivisionTwoPlus: {"Round of 32", "Round of 16", "Quarterfinals", "Semifinals", "Finals"},
}

// TournamentInfo is the structured schedule extracted from a rules document.
type TournamentInfo struct {
	Logistics     Logistics    `json:"logistics" yaml:"logistics"`
	RegularSeason []Round      `json:"regular_season" yaml:"regular_season"`
	Divisions     []Division   `json:"divisions" yaml:"divisions"`
	Requirements  Requirements `json:"requirements" yaml:"requirements"`
}

// Logistics holds the season's registration and start milestones.
type Logistics struct {
	RegistrationOpen     string `json:"registration_open" yaml:"registration_open"`
	RegistrationDeadline string `json:"registration_deadline" yaml:"registration_deadline"`
	FairPlayDeadline     string `json:"fair_play_deadline" yaml:"fair_play_deadline"`
	SeasonStart          string `json:"season_start" yaml:"season_start"`
}

// Round is a single scheduled match day.
type Round struct {
	Title string `json:"title" yaml:"title"`
	Date  string `json:"date" yaml:"date"`
}

// Division holds the playoff schedule for one division.
type Division struct {
	Division      string  `json:"division" yaml:"division"`
	PlayoffRounds []Round `json:"playoff_rounds" yaml:"playoff_rounds"`
}

// Requirements holds player eligibility thresholds.
type Requirements struct {
	MinimumAccountAge float64 `json:"minimum_account_age" yaml:"minimum_account_age"`
	MinimumGames      float64 `json:"minimum_games" yaml:"minimum_games"`
}

// Division returns the division with the given label, or nil.
func (t *TournamentInfo) Division(label string) *Division {
	for i := range t.Divisions {
		if t.Divisions[i].Division == label {
			return &t.Divisions[i]
		}
	}
	return nil
}
