package prediction

import (
	"errors"
	"testing"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/fixture"
)

func winner(name string) *string {
	return &name
}

func TestScore(t *testing.T) {
	t.Parallel()

	tiers := DefaultTiers()
	leinsterBy6 := fixture.Result{Winner: "Leinster", Margin: 6, ScoreA: 24, ScoreB: 18}
	draw := fixture.Result{ScoreA: 20, ScoreB: 20}

	cases := []struct {
		name   string
		pred   Prediction
		result fixture.Result
		want   int
	}{
		{name: "winner and exact margin", pred: Prediction{PredictedWinner: winner("Leinster"), PredictedMargin: 6}, result: leinsterBy6, want: 5},
		{name: "winner only", pred: Prediction{PredictedWinner: winner("Leinster"), PredictedMargin: 10}, result: leinsterBy6, want: 3},
		{name: "wrong winner", pred: Prediction{PredictedWinner: winner("Munster"), PredictedMargin: 6}, result: leinsterBy6, want: 0},
		{name: "predicted draw on decisive result", pred: Prediction{PredictedMargin: 0}, result: leinsterBy6, want: 0},
		{name: "predicted draw on draw", pred: Prediction{}, result: draw, want: 3},
		{name: "predicted winner on draw", pred: Prediction{PredictedWinner: winner("Leinster"), PredictedMargin: 0}, result: draw, want: 0},
		{name: "winner compared by match key", pred: Prediction{PredictedWinner: winner("leinster"), PredictedMargin: 6}, result: leinsterBy6, want: 5},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Score(tc.pred, tc.result, tiers); got != tc.want {
				t.Fatalf("unexpected points: got=%d want=%d", got, tc.want)
			}
		})
	}
}

func TestScore_ExactMarginNeverBelowCorrectWinner(t *testing.T) {
	t.Parallel()

	tiers := Tiers{CorrectWinner: 2, ExactMargin: 7}
	result := fixture.Result{Winner: "Ulster", Margin: 3, ScoreA: 13, ScoreB: 10}
	for margin := 0; margin <= 40; margin++ {
		p := Prediction{PredictedWinner: winner("Ulster"), PredictedMargin: margin}
		got := Score(p, result, tiers)
		if got < tiers.CorrectWinner {
			t.Fatalf("correct winner scored below tier: margin=%d got=%d", margin, got)
		}
		if margin == result.Margin && got != tiers.ExactMargin {
			t.Fatalf("exact margin not rewarded: got=%d want=%d", got, tiers.ExactMargin)
		}
	}
}

func TestTiersValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultTiers().Validate(); err != nil {
		t.Fatalf("default tiers must be valid: %v", err)
	}
	invalid := []Tiers{
		{CorrectWinner: 5, ExactMargin: 3},
		{CorrectWinner: 0, ExactMargin: 0},
		{CorrectWinner: 0, ExactMargin: 5},
		{CorrectWinner: -1, ExactMargin: 5},
	}
	for _, tiers := range invalid {
		if err := tiers.Validate(); !errors.Is(err, ErrInvalidTiers) {
			t.Fatalf("tiers %+v: expected ErrInvalidTiers, got=%v", tiers, err)
		}
	}
	if err := (Tiers{CorrectWinner: 1, ExactMargin: 1}).Validate(); err != nil {
		t.Fatalf("equal positive tiers must be valid: %v", err)
	}
}
