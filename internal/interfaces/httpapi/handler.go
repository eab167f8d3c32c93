package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
	"github.com/eoinvoconnor/rugby-backend/internal/usecase"
	"github.com/go-playground/validator/v10"
)

const maxRequestBodyBytes = 1 << 20

type Handler struct {
	pipelineService *usecase.PipelineService
	importService   *usecase.CalendarImportService
	scoringService  *usecase.ScoringService
	fixtureService  *usecase.FixtureService
	defaultWindow   ReconcileWindow
	logger          *logging.Logger
	validator       *validator.Validate
	now             func() time.Time
}

// ReconcileWindow is the day range used when a reconcile job names none.
type ReconcileWindow struct {
	DaysBack    int
	DaysForward int
}

func NewHandler(
	pipelineService *usecase.PipelineService,
	importService *usecase.CalendarImportService,
	scoringService *usecase.ScoringService,
	fixtureService *usecase.FixtureService,
	defaultWindow ReconcileWindow,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		pipelineService: pipelineService,
		importService:   importService,
		scoringService:  scoringService,
		fixtureService:  fixtureService,
		defaultWindow:   defaultWindow,
		logger:          logger,
		validator:       validator.New(),
		now:             time.Now,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r.Context(), "Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

// decodeJSON reads an optional JSON body into out. An empty body leaves out
// untouched.
func decodeJSON(r *http.Request, out any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes+1))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", usecase.ErrInvalidInput, err)
	}
	if len(raw) > maxRequestBodyBytes {
		return fmt.Errorf("%w: request body too large", usecase.ErrInvalidInput)
	}
	if len(raw) == 0 {
		return nil
	}

	decoder := sonic.ConfigStd.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}
