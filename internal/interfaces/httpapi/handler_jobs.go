package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/usecase"
)

const (
	jobReconcile         = "reconcile"
	jobImportCalendars   = "import-calendars"
	jobRecalculateScores = "recalculate-scores"
)

var dispatchUnsafeRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func (h *Handler) RunReconcileJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r.Context(), "RunReconcileJob")
	defer span.End()

	if h.pipelineService == nil {
		writeError(ctx, w, fmt.Errorf("%w: reconciliation pipeline is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req reconcileJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	window := h.defaultWindow
	if req.DaysBack != nil {
		window.DaysBack = *req.DaysBack
	}
	if req.DaysForward != nil {
		window.DaysForward = *req.DaysForward
	}

	h.runJob(ctx, w, r, jobReconcile, req.DispatchID, func(ctx context.Context) (any, error) {
		return h.pipelineService.RunReconciliation(ctx, window.DaysBack, window.DaysForward)
	}, "days_back", window.DaysBack, "days_forward", window.DaysForward)
}

func (h *Handler) RunImportCalendarsJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r.Context(), "RunImportCalendarsJob")
	defer span.End()

	if h.importService == nil {
		writeError(ctx, w, fmt.Errorf("%w: calendar importer is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req importCalendarsJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	h.runJob(ctx, w, r, jobImportCalendars, req.DispatchID, func(ctx context.Context) (any, error) {
		switch {
		case req.FeedURL != "":
			return h.importService.ImportFromURL(ctx, req.CompetitionID, req.FeedURL)
		case req.CompetitionID != "":
			return h.importService.ImportCompetition(ctx, req.CompetitionID)
		default:
			return h.importService.ImportAll(ctx)
		}
	}, "competition_id", req.CompetitionID)
}

func (h *Handler) RunRecalculateScoresJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r.Context(), "RunRecalculateScoresJob")
	defer span.End()

	if h.scoringService == nil {
		writeError(ctx, w, fmt.Errorf("%w: scoring service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req recalculateScoresJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	h.runJob(ctx, w, r, jobRecalculateScores, req.DispatchID, func(ctx context.Context) (any, error) {
		switch {
		case req.FixtureID != "":
			return h.scoringService.ScoreFixture(ctx, req.FixtureID)
		case req.PendingOnly:
			return h.scoringService.ScorePending(ctx)
		default:
			return h.scoringService.RecalculateAll(ctx)
		}
	}, "fixture_id", req.FixtureID, "pending_only", req.PendingOnly)
}

func (h *Handler) runJob(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
	job string,
	dispatchID string,
	run func(context.Context) (any, error),
	logArgs ...any,
) {
	started := h.now()
	dispatchID = strings.TrimSpace(dispatchID)
	if dispatchID == "" {
		dispatchID = buildManualDispatchID(job, started)
	}

	traceID, spanID := traceIDs(ctx)
	args := append([]any{
		"job", job,
		"dispatch_id", dispatchID,
		"client_ip", clientAddr(r),
		"trace_id", traceID,
		"span_id", spanID,
	}, logArgs...)

	result, err := run(ctx)
	args = append(args, "duration_ms", time.Since(started).Milliseconds())
	if err != nil {
		h.logger.WarnContext(ctx, "internal job failed", append(args, "error", err)...)
		writeError(ctx, w, err)
		return
	}
	h.logger.InfoContext(ctx, "internal job completed", args...)

	writeSuccess(ctx, w, http.StatusOK, jobResponse{
		DispatchID: dispatchID,
		Job:        job,
		Result:     result,
	})
}

func buildManualDispatchID(job string, now time.Time) string {
	return "manual-" + sanitizeDispatchPart(job) + "-" + now.UTC().Format("20060102T150405.000000000Z")
}

func sanitizeDispatchPart(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dispatchUnsafeRegex.ReplaceAllString(value, "-")
}
