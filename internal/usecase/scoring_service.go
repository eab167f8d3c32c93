package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/fixture"
	"github.com/eoinvoconnor/rugby-backend/internal/domain/prediction"
	"github.com/eoinvoconnor/rugby-backend/internal/domain/teamname"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/resilience"
)

type ScoreFixtureResult struct {
	FixtureID          string `json:"fixture_id"`
	Predictions        int    `json:"predictions"`
	PredictionsUpdated int    `json:"predictions_updated"`
}

type ScoreSweepResult struct {
	FixturesScored     int      `json:"fixtures_scored"`
	FixturesFailed     int      `json:"fixtures_failed"`
	PredictionsUpdated int      `json:"predictions_updated"`
	FailedFixtureIDs   []string `json:"failed_fixture_ids,omitempty"`
}

type ScoringService struct {
	fixtures    fixture.Store
	predictions prediction.Repository
	tiers       prediction.Tiers
	normalizer  *teamname.Normalizer
	logger      *logging.Logger
	now         func() time.Time
	flight      resilience.Group[ScoreFixtureResult]
}

type ScoringOption func(*ScoringService)

// WithTeamNormalizer resolves predicted winners through the alias table
// before they are compared with the stored result.
func WithTeamNormalizer(normalizer *teamname.Normalizer) ScoringOption {
	return func(s *ScoringService) {
		s.normalizer = normalizer
	}
}

func NewScoringService(fixtures fixture.Store, predictions prediction.Repository, tiers prediction.Tiers, logger *logging.Logger, opts ...ScoringOption) *ScoringService {
	if logger == nil {
		logger = logging.Default()
	}
	s := &ScoringService{
		fixtures:    fixtures,
		predictions: predictions,
		tiers:       tiers,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreFixture recomputes points for every prediction on a resolved fixture.
// Points are only written when they change, so rescoring is stable.
func (s *ScoringService) ScoreFixture(ctx context.Context, fixtureID string) (ScoreFixtureResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ScoreFixture")
	defer span.End()

	fixtureID = strings.TrimSpace(fixtureID)
	if fixtureID == "" {
		return ScoreFixtureResult{}, fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
	}

	out, _, err := s.flight.Do(ctx, fixtureID, func() (ScoreFixtureResult, error) {
		return s.scoreFixture(ctx, fixtureID)
	})
	return out, err
}

func (s *ScoringService) scoreFixture(ctx context.Context, fixtureID string) (ScoreFixtureResult, error) {
	item, exists, err := s.fixtures.GetByID(ctx, fixtureID)
	if err != nil {
		return ScoreFixtureResult{}, fmt.Errorf("get fixture: %w", err)
	}
	if !exists {
		return ScoreFixtureResult{}, fmt.Errorf("%w: fixture=%s", ErrNotFound, fixtureID)
	}
	if !item.HasResult() {
		return ScoreFixtureResult{}, fmt.Errorf("%w: fixture %s has no result", ErrInvalidInput, fixtureID)
	}

	items, err := s.predictions.ListByMatch(ctx, fixtureID)
	if err != nil {
		return ScoreFixtureResult{}, fmt.Errorf("list predictions: %w", err)
	}

	now := s.now().UTC()
	result := ScoreFixtureResult{FixtureID: fixtureID, Predictions: len(items)}
	actual := *item.Result
	if s.normalizer != nil && actual.Winner != "" {
		actual.Winner = s.normalizer.Normalize(actual.Winner)
	}
	for _, p := range items {
		points := prediction.Score(s.canonicalWinner(p), actual, s.tiers)
		if p.Points != nil && *p.Points == points {
			continue
		}
		if err := s.predictions.UpdatePoints(ctx, p.ID, points, now); err != nil {
			return result, fmt.Errorf("update prediction points prediction=%s: %w", p.ID, err)
		}
		result.PredictionsUpdated++
	}

	if err := s.fixtures.MarkScored(ctx, fixtureID, now); err != nil {
		return result, fmt.Errorf("mark fixture scored: %w", err)
	}

	s.logger.InfoContext(ctx, "fixture scored",
		"fixture_id", fixtureID,
		"predictions", result.Predictions,
		"predictions_updated", result.PredictionsUpdated,
	)
	return result, nil
}

func (s *ScoringService) canonicalWinner(p prediction.Prediction) prediction.Prediction {
	if s.normalizer == nil || p.PredictsDraw() {
		return p
	}
	winner := s.normalizer.Normalize(*p.PredictedWinner)
	p.PredictedWinner = &winner
	return p
}

// OverrideResult replaces a fixture's result from final scores and rescores
// its predictions. It is an administrative correction; the reconciliation
// pipeline never calls it.
func (s *ScoringService) OverrideResult(ctx context.Context, fixtureID string, scoreA, scoreB int) (ScoreFixtureResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.OverrideResult")
	defer span.End()

	fixtureID = strings.TrimSpace(fixtureID)
	if fixtureID == "" {
		return ScoreFixtureResult{}, fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
	}
	if scoreA < 0 || scoreB < 0 {
		return ScoreFixtureResult{}, fmt.Errorf("%w: scores must be >= 0", ErrInvalidInput)
	}

	item, exists, err := s.fixtures.GetByID(ctx, fixtureID)
	if err != nil {
		return ScoreFixtureResult{}, fmt.Errorf("get fixture: %w", err)
	}
	if !exists {
		return ScoreFixtureResult{}, fmt.Errorf("%w: fixture=%s", ErrNotFound, fixtureID)
	}

	result := fixture.ResultFromScores(item.TeamA, item.TeamB, scoreA, scoreB)
	if _, err := s.fixtures.OverrideResult(ctx, fixtureID, result); err != nil {
		switch {
		case errors.Is(err, fixture.ErrNotFound):
			return ScoreFixtureResult{}, fmt.Errorf("%w: fixture=%s", ErrNotFound, fixtureID)
		case errors.Is(err, fixture.ErrInvalidFixture):
			return ScoreFixtureResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return ScoreFixtureResult{}, fmt.Errorf("override result: %w", err)
	}
	s.logger.WarnContext(ctx, "fixture result overridden",
		"fixture_id", fixtureID,
		"score_a", scoreA,
		"score_b", scoreB,
	)

	return s.ScoreFixture(ctx, fixtureID)
}

// ScorePending scores every fixture that has a result but has not been
// scored since the result landed. This also retries earlier failures.
func (s *ScoringService) ScorePending(ctx context.Context) (ScoreSweepResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ScorePending")
	defer span.End()

	return s.sweep(ctx, func(item fixture.Fixture) bool {
		return item.State() == fixture.StateCompleted
	})
}

// RecalculateAll rescores every resolved fixture, for use after the tiers
// change.
func (s *ScoringService) RecalculateAll(ctx context.Context) (ScoreSweepResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.RecalculateAll")
	defer span.End()

	return s.sweep(ctx, fixture.Fixture.HasResult)
}

func (s *ScoringService) sweep(ctx context.Context, keep func(fixture.Fixture) bool) (ScoreSweepResult, error) {
	items, err := s.fixtures.ListAll(ctx)
	if err != nil {
		return ScoreSweepResult{}, fmt.Errorf("list fixtures: %w", err)
	}

	var result ScoreSweepResult
	for _, item := range items {
		if !keep(item) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		scored, err := s.ScoreFixture(ctx, item.ID)
		if err != nil {
			result.FixturesFailed++
			result.FailedFixtureIDs = append(result.FailedFixtureIDs, item.ID)
			s.logger.WarnContext(ctx, "score fixture failed", "fixture_id", item.ID, "error", err)
			continue
		}
		result.FixturesScored++
		result.PredictionsUpdated += scored.PredictionsUpdated
	}
	return result, nil
}
