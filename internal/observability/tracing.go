package observability

import (
	"context"
	"strings"

	"github.com/eoinvoconnor/rugby-backend/internal/config"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.opentelemetry.io/otel/attribute"
)

// startTracing installs the global OpenTelemetry providers through Uptrace.
// Spans from the scraper, reconciler and pipeline all flow through them.
func startTracing(cfg config.Config, logger *logging.Logger) (func(context.Context) error, error) {
	switch {
	case !cfg.UptraceEnabled:
		logger.Info("tracing off", "reason", "UPTRACE_ENABLED=false")
		return nil, nil
	case strings.TrimSpace(cfg.UptraceDSN) == "":
		logger.Info("tracing off", "reason", "no uptrace dsn")
		return nil, nil
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.AppEnv),
		uptrace.WithResourceAttributes(
			attribute.String("rugby.store_driver", cfg.StoreDriver),
			attribute.Int("rugby.competitions", len(cfg.Competitions)),
		),
	)
	logger.Info("tracing on", "exporter", "uptrace", "service", cfg.ServiceName, "version", cfg.ServiceVersion)
	return uptrace.Shutdown, nil
}
