package postgres

import (
	"database/sql"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/fixture"
)

type fixtureTableModel struct {
	ID            int64          `db:"id"`
	PublicID      string         `db:"public_id"`
	CompetitionID string         `db:"competition_id"`
	TeamA         string         `db:"team_a"`
	TeamB         string         `db:"team_b"`
	PairKey       string         `db:"pair_key"`
	KickoffAt     time.Time      `db:"kickoff_at"`
	Venue         string         `db:"venue"`
	SourceUID     string         `db:"source_uid"`
	ResultWinner  sql.NullString `db:"result_winner"`
	ResultMargin  sql.NullInt64  `db:"result_margin"`
	ScoreA        sql.NullInt64  `db:"score_a"`
	ScoreB        sql.NullInt64  `db:"score_b"`
	ResultAt      *time.Time     `db:"result_at"`
	ScoredAt      *time.Time     `db:"scored_at"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	DeletedAt     *time.Time     `db:"deleted_at"`
}

type fixtureInsertModel struct {
	PublicID      string    `db:"public_id"`
	CompetitionID string    `db:"competition_id"`
	TeamA         string    `db:"team_a"`
	TeamB         string    `db:"team_b"`
	PairKey       string    `db:"pair_key"`
	KickoffAt     time.Time `db:"kickoff_at"`
	Venue         string    `db:"venue"`
	SourceUID     string    `db:"source_uid"`
}

func (m fixtureTableModel) toDomain() fixture.Fixture {
	out := fixture.Fixture{
		ID:            m.PublicID,
		CompetitionID: m.CompetitionID,
		TeamA:         m.TeamA,
		TeamB:         m.TeamB,
		KickoffAt:     m.KickoffAt.UTC(),
		Venue:         m.Venue,
		SourceUID:     m.SourceUID,
		ResultAt:      m.ResultAt,
		ScoredAt:      m.ScoredAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.ResultMargin.Valid {
		out.Result = &fixture.Result{
			Winner: m.ResultWinner.String,
			Margin: int(m.ResultMargin.Int64),
			ScoreA: int(m.ScoreA.Int64),
			ScoreB: int(m.ScoreB.Int64),
		}
	}
	return out
}
