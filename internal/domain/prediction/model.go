package prediction

import "time"

// Prediction is one user's call on a fixture. A nil PredictedWinner means
// the user predicted a draw.
type Prediction struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	MatchID         string     `json:"match_id"`
	PredictedWinner *string    `json:"predicted_winner,omitempty"`
	PredictedMargin int        `json:"predicted_margin"`
	Points          *int       `json:"points,omitempty"`
	ScoredAt        *time.Time `json:"scored_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (p Prediction) PredictsDraw() bool {
	return p.PredictedWinner == nil || *p.PredictedWinner == ""
}
