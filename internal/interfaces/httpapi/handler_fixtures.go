package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) ListFixtures(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r.Context(), "ListFixtures")
	defer span.End()

	query := r.URL.Query()
	competitionID := strings.TrimSpace(query.Get("competition_id"))
	state := strings.TrimSpace(query.Get("state"))

	var (
		items []fixtureDTO
		err   error
	)
	if competitionID != "" {
		fixtures, listErr := h.fixtureService.ListByCompetition(ctx, competitionID)
		err = listErr
		for _, item := range fixtures {
			if state != "" && !strings.EqualFold(item.State(), state) {
				continue
			}
			items = append(items, fixtureToDTO(item))
		}
	} else {
		fixtures, listErr := h.fixtureService.ListByState(ctx, state)
		err = listErr
		for _, item := range fixtures {
			items = append(items, fixtureToDTO(item))
		}
	}
	if err != nil {
		h.logger.WarnContext(ctx, "list fixtures failed", "competition_id", competitionID, "state", state, "error", err)
		writeError(ctx, w, err)
		return
	}
	if items == nil {
		items = []fixtureDTO{}
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetFixture(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r.Context(), "GetFixture")
	defer span.End()

	fixtureID := r.PathValue("fixtureID")
	item, err := h.fixtureService.Get(ctx, fixtureID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, fixtureToDTO(item))
}

// OverrideFixtureResult corrects a stored result by hand and rescores the
// fixture's predictions.
func (h *Handler) OverrideFixtureResult(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r.Context(), "OverrideFixtureResult")
	defer span.End()

	var req overrideResultRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	fixtureID := r.PathValue("fixtureID")
	scored, err := h.scoringService.OverrideResult(ctx, fixtureID, *req.ScoreA, *req.ScoreB)
	if err != nil {
		h.logger.WarnContext(ctx, "override fixture result failed", "fixture_id", fixtureID, "error", err)
		writeError(ctx, w, err)
		return
	}

	item, err := h.fixtureService.Get(ctx, fixtureID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"fixture": fixtureToDTO(item),
		"scoring": scored,
	})
}
