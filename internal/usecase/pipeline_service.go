package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const maxReconcileWindowDays = 30

type RunResult struct {
	DaysBack           int                 `json:"days_back"`
	DaysForward        int                 `json:"days_forward"`
	DatesFetched       int                 `json:"dates_fetched"`
	DatesFailed        int                 `json:"dates_failed"`
	RowsFound          int                 `json:"rows_found"`
	UpdatedCount       int                 `json:"updated_count"`
	AlreadyResolved    int                 `json:"already_resolved"`
	UpdatedFixtureIDs  []string            `json:"updated_fixture_ids"`
	Unmatched          []UnmatchedResult   `json:"unmatched"`
	Ambiguous          []UnmatchedResult   `json:"ambiguous"`
	Dates              []ScrapeDateOutcome `json:"dates"`
	FixturesScored     int                 `json:"fixtures_scored"`
	PredictionsUpdated int                 `json:"predictions_updated"`
	DurationMS         int64               `json:"duration_ms"`
}

type PipelineService struct {
	fetcher    ResultFetcher
	reconciler *ReconcileService
	scorer     *ScoringService
	logger     *logging.Logger
	now        func() time.Time
}

func NewPipelineService(fetcher ResultFetcher, reconciler *ReconcileService, scorer *ScoringService, logger *logging.Logger) *PipelineService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PipelineService{
		fetcher:    fetcher,
		reconciler: reconciler,
		scorer:     scorer,
		logger:     logger,
		now:        time.Now,
	}
}

// RunReconciliation scrapes the window around today, attaches new results
// and rescores what is pending. A failed date or an unmatched row is
// reported in the result; only invalid input or a store failure is an error.
func (s *PipelineService) RunReconciliation(ctx context.Context, daysBack, daysForward int) (RunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineService.RunReconciliation")
	defer span.End()

	if daysBack < 0 || daysBack > maxReconcileWindowDays {
		return RunResult{}, fmt.Errorf("%w: days_back must be within 0..%d", ErrInvalidInput, maxReconcileWindowDays)
	}
	if daysForward < 0 || daysForward > maxReconcileWindowDays {
		return RunResult{}, fmt.Errorf("%w: days_forward must be within 0..%d", ErrInvalidInput, maxReconcileWindowDays)
	}
	if s.fetcher == nil {
		return RunResult{}, fmt.Errorf("%w: result fetcher is not configured", ErrDependencyUnavailable)
	}

	started := s.now()
	window, err := s.fetcher.FetchWindow(ctx, daysBack, daysForward)
	if err != nil {
		return RunResult{}, failSpan(span, fmt.Errorf("fetch results window: %w", err))
	}

	reconciled, err := s.reconciler.Reconcile(ctx, window.Results)
	if err != nil {
		return RunResult{}, failSpan(span, fmt.Errorf("reconcile scraped results: %w", err))
	}

	result := RunResult{
		DaysBack:          daysBack,
		DaysForward:       daysForward,
		DatesFetched:      len(window.Dates) - window.FailedDates(),
		DatesFailed:       window.FailedDates(),
		RowsFound:         len(window.Results),
		UpdatedCount:      reconciled.UpdatedCount,
		AlreadyResolved:   reconciled.AlreadyResolved,
		UpdatedFixtureIDs: reconciled.UpdatedFixtureIDs,
		Unmatched:         reconciled.Unmatched,
		Ambiguous:         reconciled.Ambiguous,
		Dates:             window.Dates,
	}

	if s.scorer != nil {
		scored, err := s.scorer.ScorePending(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "score pending fixtures failed", "error", err)
		}
		result.FixturesScored = scored.FixturesScored
		result.PredictionsUpdated = scored.PredictionsUpdated
	}
	result.DurationMS = s.now().Sub(started).Milliseconds()
	span.SetAttributes(
		attribute.Int("reconcile.rows_found", result.RowsFound),
		attribute.Int("reconcile.updated", result.UpdatedCount),
		attribute.Int("reconcile.unmatched", len(result.Unmatched)),
		attribute.Int("reconcile.dates_failed", result.DatesFailed),
	)

	s.logger.InfoContext(ctx, "reconciliation run finished",
		"days_back", daysBack,
		"days_forward", daysForward,
		"dates_fetched", result.DatesFetched,
		"dates_failed", result.DatesFailed,
		"rows_found", result.RowsFound,
		"updated", result.UpdatedCount,
		"already_resolved", result.AlreadyResolved,
		"unmatched", len(result.Unmatched),
		"ambiguous", len(result.Ambiguous),
		"fixtures_scored", result.FixturesScored,
		"duration_ms", result.DurationMS,
	)
	return result, nil
}
