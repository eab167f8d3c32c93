package httpapi

import (
	"net/http"

	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
)

type RouterConfig struct {
	ServiceName        string
	CORSAllowedOrigins []string
	InternalJobToken   string
}

func NewRouter(handler *Handler, cfg RouterConfig, logger *logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "rugby-backend"
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler)
	guard := JobTokenGuard(cfg.InternalJobToken)
	registerInternalJobRoutes(mux, handler, guard)
	registerInternalFixtureRoutes(mux, handler, guard)

	return Chain(mux,
		Tracing(serviceName),
		AccessLog(logger),
		CORS(cfg.CORSAllowedOrigins),
		Recover(logger),
	)
}
