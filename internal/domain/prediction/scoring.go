package prediction

import (
	"errors"
	"fmt"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/fixture"
	"github.com/eoinvoconnor/rugby-backend/internal/domain/teamname"
)

var ErrInvalidTiers = errors.New("invalid scoring tiers")

// Tiers stores the points awarded per prediction outcome.
type Tiers struct {
	CorrectWinner int
	ExactMargin   int
}

func DefaultTiers() Tiers {
	return Tiers{
		CorrectWinner: 3,
		ExactMargin:   5,
	}
}

func (t Tiers) Validate() error {
	if t.CorrectWinner <= 0 {
		return fmt.Errorf("%w: correct winner tier must be > 0", ErrInvalidTiers)
	}
	if t.ExactMargin < t.CorrectWinner {
		return fmt.Errorf("%w: exact margin tier %d is below correct winner tier %d", ErrInvalidTiers, t.ExactMargin, t.CorrectWinner)
	}
	return nil
}

// Score awards points for p against an authoritative result.
//
// A draw predicted against a drawn result earns the correct winner tier.
// A correctly picked winner earns the correct winner tier, or the exact
// margin tier when the margin also matches. Anything else earns nothing.
func Score(p Prediction, r fixture.Result, tiers Tiers) int {
	if r.IsDraw() {
		if p.PredictsDraw() {
			return tiers.CorrectWinner
		}
		return 0
	}
	if p.PredictsDraw() {
		return 0
	}
	if teamname.MatchKey(*p.PredictedWinner) != teamname.MatchKey(r.Winner) {
		return 0
	}
	if p.PredictedMargin == r.Margin {
		return tiers.ExactMargin
	}
	return tiers.CorrectWinner
}
