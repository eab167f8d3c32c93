package httpapi

import (
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/fixture"
)

type reconcileJobRequest struct {
	DispatchID  string `json:"dispatch_id" validate:"omitempty,max=120"`
	DaysBack    *int   `json:"days_back" validate:"omitempty,gte=0,lte=30"`
	DaysForward *int   `json:"days_forward" validate:"omitempty,gte=0,lte=30"`
}

type importCalendarsJobRequest struct {
	DispatchID    string `json:"dispatch_id" validate:"omitempty,max=120"`
	CompetitionID string `json:"competition_id" validate:"required_with=FeedURL,max=64"`
	FeedURL       string `json:"feed_url" validate:"omitempty,url"`
}

type recalculateScoresJobRequest struct {
	DispatchID string `json:"dispatch_id" validate:"omitempty,max=120"`
	FixtureID  string `json:"fixture_id" validate:"omitempty,max=64"`
	// PendingOnly limits the sweep to fixtures not yet scored.
	PendingOnly bool `json:"pending_only"`
}

type overrideResultRequest struct {
	ScoreA *int `json:"score_a" validate:"required,gte=0,lte=300"`
	ScoreB *int `json:"score_b" validate:"required,gte=0,lte=300"`
}

type jobResponse struct {
	DispatchID string `json:"dispatch_id"`
	Job        string `json:"job"`
	Result     any    `json:"result"`
}

type resultDTO struct {
	Winner string `json:"winner"`
	Margin int    `json:"margin"`
	ScoreA int    `json:"score_a"`
	ScoreB int    `json:"score_b"`
}

type fixtureDTO struct {
	ID            string     `json:"id"`
	CompetitionID string     `json:"competition_id"`
	TeamA         string     `json:"team_a"`
	TeamB         string     `json:"team_b"`
	KickoffAt     time.Time  `json:"kickoff_at"`
	Venue         string     `json:"venue,omitempty"`
	State         string     `json:"state"`
	Result        *resultDTO `json:"result,omitempty"`
	ResultAt      *time.Time `json:"result_at,omitempty"`
	ScoredAt      *time.Time `json:"scored_at,omitempty"`
}

func fixtureToDTO(item fixture.Fixture) fixtureDTO {
	out := fixtureDTO{
		ID:            item.ID,
		CompetitionID: item.CompetitionID,
		TeamA:         item.TeamA,
		TeamB:         item.TeamB,
		KickoffAt:     item.KickoffAt.UTC(),
		Venue:         item.Venue,
		State:         item.State(),
		ResultAt:      item.ResultAt,
		ScoredAt:      item.ScoredAt,
	}
	if item.Result != nil {
		out.Result = &resultDTO{
			Winner: item.Result.Winner,
			Margin: item.Result.Margin,
			ScoreA: item.Result.ScoreA,
			ScoreB: item.Result.ScoreB,
		}
	}
	return out
}
