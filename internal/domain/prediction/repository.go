package prediction

import (
	"context"
	"time"
)

type Repository interface {
	ListByMatch(ctx context.Context, matchID string) ([]Prediction, error)
	UpdatePoints(ctx context.Context, predictionID string, points int, scoredAt time.Time) error
	Save(ctx context.Context, p Prediction) error
}
