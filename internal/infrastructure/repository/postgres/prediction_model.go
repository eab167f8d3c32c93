package postgres

import (
	"database/sql"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/prediction"
)

type predictionTableModel struct {
	ID              int64          `db:"id"`
	PublicID        string         `db:"public_id"`
	UserID          string         `db:"user_id"`
	MatchID         string         `db:"match_public_id"`
	PredictedWinner sql.NullString `db:"predicted_winner"`
	PredictedMargin int            `db:"predicted_margin"`
	Points          sql.NullInt64  `db:"points"`
	ScoredAt        *time.Time     `db:"scored_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
	DeletedAt       *time.Time     `db:"deleted_at"`
}

type predictionInsertModel struct {
	PublicID        string         `db:"public_id"`
	UserID          string         `db:"user_id"`
	MatchID         string         `db:"match_public_id"`
	PredictedWinner sql.NullString `db:"predicted_winner"`
	PredictedMargin int            `db:"predicted_margin"`
}

func (m predictionTableModel) toDomain() prediction.Prediction {
	out := prediction.Prediction{
		ID:              m.PublicID,
		UserID:          m.UserID,
		MatchID:         m.MatchID,
		PredictedMargin: m.PredictedMargin,
		ScoredAt:        m.ScoredAt,
		CreatedAt:       m.CreatedAt,
	}
	if m.PredictedWinner.Valid && m.PredictedWinner.String != "" {
		winner := m.PredictedWinner.String
		out.PredictedWinner = &winner
	}
	if m.Points.Valid {
		points := int(m.Points.Int64)
		out.Points = &points
	}
	return out
}
