package file

import (
	"context"
	"path/filepath"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/prediction"
	"github.com/eoinvoconnor/rugby-backend/internal/infrastructure/repository/memory"
)

const predictionsFile = "predictions.json"

type PredictionRepository struct {
	doc *document[prediction.Prediction, *memory.PredictionRepository]
}

func NewPredictionRepository(dataDir string) (*PredictionRepository, error) {
	doc, err := openDocument(
		filepath.Join(dataDir, predictionsFile),
		memory.NewPredictionRepository,
		func(ctx context.Context, view *memory.PredictionRepository) ([]prediction.Prediction, error) {
			return view.ListAll(ctx)
		},
	)
	if err != nil {
		return nil, err
	}
	return &PredictionRepository{doc: doc}, nil
}

func (r *PredictionRepository) ListByMatch(ctx context.Context, matchID string) ([]prediction.Prediction, error) {
	view, err := r.doc.read()
	if err != nil {
		return nil, err
	}
	return view.ListByMatch(ctx, matchID)
}

func (r *PredictionRepository) UpdatePoints(ctx context.Context, predictionID string, points int, scoredAt time.Time) error {
	return r.doc.update(ctx, func(view *memory.PredictionRepository) (bool, error) {
		err := view.UpdatePoints(ctx, predictionID, points, scoredAt)
		return err == nil, err
	})
}

func (r *PredictionRepository) Save(ctx context.Context, p prediction.Prediction) error {
	return r.doc.update(ctx, func(view *memory.PredictionRepository) (bool, error) {
		err := view.Save(ctx, p)
		return err == nil, err
	})
}
