package fixture

import (
	"errors"
	"time"
)

const (
	StateScheduled = "SCHEDULED"
	StateCompleted = "COMPLETED"
	StateScored    = "SCORED"
)

var (
	ErrNotFound        = errors.New("fixture not found")
	ErrAlreadyResolved = errors.New("fixture already has a result")
	ErrInvalidFixture  = errors.New("invalid fixture")
)

// Result is the authoritative outcome of a played fixture. Winner holds the
// canonical team name and is empty for a draw.
type Result struct {
	Winner string `json:"winner"`
	Margin int    `json:"margin"`
	ScoreA int    `json:"score_a"`
	ScoreB int    `json:"score_b"`
}

func (r Result) IsDraw() bool {
	return r.Winner == ""
}

// Fixture represents one scheduled match between two canonical teams.
type Fixture struct {
	ID            string     `json:"id"`
	CompetitionID string     `json:"competition_id"`
	TeamA         string     `json:"team_a"`
	TeamB         string     `json:"team_b"`
	KickoffAt     time.Time  `json:"kickoff_at"`
	Venue         string     `json:"venue,omitempty"`
	SourceUID     string     `json:"source_uid,omitempty"`
	Result        *Result    `json:"result,omitempty"`
	ResultAt      *time.Time `json:"result_at,omitempty"`
	ScoredAt      *time.Time `json:"scored_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (f Fixture) HasResult() bool {
	return f.Result != nil
}

func (f Fixture) State() string {
	switch {
	case f.Result == nil:
		return StateScheduled
	case f.ScoredAt == nil:
		return StateCompleted
	default:
		return StateScored
	}
}

// ResultFromScores derives the result for teamA vs teamB.
func ResultFromScores(teamA, teamB string, scoreA, scoreB int) Result {
	out := Result{ScoreA: scoreA, ScoreB: scoreB}
	switch {
	case scoreA > scoreB:
		out.Winner = teamA
		out.Margin = scoreA - scoreB
	case scoreB > scoreA:
		out.Winner = teamB
		out.Margin = scoreB - scoreA
	}
	return out
}

func (r Result) Validate(teamA, teamB string) error {
	if r.ScoreA < 0 || r.ScoreB < 0 || r.Margin < 0 {
		return errors.Join(ErrInvalidFixture, errors.New("scores and margin must be >= 0"))
	}
	if r != ResultFromScores(teamA, teamB, r.ScoreA, r.ScoreB) {
		return errors.Join(ErrInvalidFixture, errors.New("winner and margin must agree with the scores"))
	}
	return nil
}

func (f Fixture) Validate() error {
	switch {
	case f.CompetitionID == "":
		return errors.Join(ErrInvalidFixture, errors.New("competition id is required"))
	case f.TeamA == "" || f.TeamB == "":
		return errors.Join(ErrInvalidFixture, errors.New("both teams are required"))
	case f.KickoffAt.IsZero():
		return errors.Join(ErrInvalidFixture, errors.New("kickoff time is required"))
	}
	if f.Result != nil {
		return f.Result.Validate(f.TeamA, f.TeamB)
	}
	return nil
}
