package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/prediction"
	qb "github.com/eoinvoconnor/rugby-backend/internal/platform/querybuilder"
	"github.com/jmoiron/sqlx"
)

type PredictionRepository struct {
	db *sqlx.DB
}

func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) ListByMatch(ctx context.Context, matchID string) ([]prediction.Prediction, error) {
	query, args, err := qb.Select("*").From("predictions").
		Where(
			qb.Eq("match_public_id", matchID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select predictions by match query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select predictions by match: %w", err)
	}

	out := make([]prediction.Prediction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *PredictionRepository) UpdatePoints(ctx context.Context, predictionID string, points int, scoredAt time.Time) error {
	query, args, err := qb.Update("predictions").
		Set("points", points).
		Set("scored_at", scoredAt.UTC()).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", predictionID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update prediction points query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update prediction points: %w", err)
	}
	return nil
}

func (r *PredictionRepository) Save(ctx context.Context, p prediction.Prediction) error {
	insert := predictionInsertModel{
		PublicID:        p.ID,
		UserID:          p.UserID,
		MatchID:         p.MatchID,
		PredictedMargin: p.PredictedMargin,
	}
	if !p.PredictsDraw() {
		insert.PredictedWinner = sql.NullString{String: *p.PredictedWinner, Valid: true}
	}

	query, args, err := qb.InsertModel("predictions", insert, `ON CONFLICT (public_id)
DO UPDATE SET
    predicted_winner = EXCLUDED.predicted_winner,
    predicted_margin = EXCLUDED.predicted_margin,
    updated_at = NOW(),
    deleted_at = NULL`)
	if err != nil {
		return fmt.Errorf("build upsert prediction query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert prediction: %w", err)
	}
	return nil
}
