package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, guard Middleware) {
	mux.Handle("POST /v1/internal/jobs/reconcile", guard(http.HandlerFunc(handler.RunReconcileJob)))
	mux.Handle("POST /v1/internal/jobs/import-calendars", guard(http.HandlerFunc(handler.RunImportCalendarsJob)))
	mux.Handle("POST /v1/internal/jobs/recalculate-scores", guard(http.HandlerFunc(handler.RunRecalculateScoresJob)))
}

func registerInternalFixtureRoutes(mux *http.ServeMux, handler *Handler, guard Middleware) {
	mux.Handle("GET /v1/internal/fixtures", guard(http.HandlerFunc(handler.ListFixtures)))
	mux.Handle("GET /v1/internal/fixtures/{fixtureID}", guard(http.HandlerFunc(handler.GetFixture)))
	// Administrative correction; the pipeline itself never overrides a result.
	mux.Handle("PUT /v1/internal/fixtures/{fixtureID}/result", guard(http.HandlerFunc(handler.OverrideFixtureResult)))
}
