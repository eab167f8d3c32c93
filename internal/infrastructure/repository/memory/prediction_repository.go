package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/prediction"
)

var ErrPredictionNotFound = errors.New("prediction not found")

type PredictionRepository struct {
	mu          sync.RWMutex
	predictions map[string]prediction.Prediction
}

func NewPredictionRepository(items []prediction.Prediction) *PredictionRepository {
	predictions := make(map[string]prediction.Prediction, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		predictions[item.ID] = clonePrediction(item)
	}
	return &PredictionRepository{predictions: predictions}
}

func (r *PredictionRepository) ListByMatch(_ context.Context, matchID string) ([]prediction.Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]prediction.Prediction, 0)
	for _, item := range r.predictions {
		if item.MatchID == matchID {
			out = append(out, clonePrediction(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *PredictionRepository) ListAll(_ context.Context) ([]prediction.Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]prediction.Prediction, 0, len(r.predictions))
	for _, item := range r.predictions {
		out = append(out, clonePrediction(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *PredictionRepository) UpdatePoints(_ context.Context, predictionID string, points int, scoredAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.predictions[predictionID]
	if !ok {
		return fmt.Errorf("%w: id=%s", ErrPredictionNotFound, predictionID)
	}
	at := scoredAt.UTC()
	item.Points = &points
	item.ScoredAt = &at
	r.predictions[predictionID] = item
	return nil
}

func (r *PredictionRepository) Save(_ context.Context, p prediction.Prediction) error {
	if p.ID == "" || p.MatchID == "" {
		return fmt.Errorf("prediction id and match id are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.predictions[p.ID] = clonePrediction(p)
	return nil
}

func clonePrediction(item prediction.Prediction) prediction.Prediction {
	if item.PredictedWinner != nil {
		w := *item.PredictedWinner
		item.PredictedWinner = &w
	}
	if item.Points != nil {
		p := *item.Points
		item.Points = &p
	}
	if item.ScoredAt != nil {
		at := *item.ScoredAt
		item.ScoredAt = &at
	}
	return item
}
