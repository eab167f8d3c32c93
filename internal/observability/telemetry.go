// Package observability wires tracing, continuous profiling and the pprof
// endpoint from config.
package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/eoinvoconnor/rugby-backend/internal/config"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
)

type stopFunc struct {
	name string
	stop func(context.Context) error
}

// Telemetry holds whatever Start enabled. The zero value shuts down cleanly.
type Telemetry struct {
	logger    *logging.Logger
	stops     []stopFunc
	pprofAddr string
}

// Start enables each backend the config turns on. If one fails, the ones
// already started are stopped before the error is returned.
func Start(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = logging.Default()
	}
	t := &Telemetry{logger: logger}

	steps := []struct {
		name  string
		start func(config.Config, *logging.Logger) (func(context.Context) error, error)
	}{
		{"uptrace", startTracing},
		{"pyroscope", startProfiler},
		{"pprof", t.startPprof},
	}
	for _, step := range steps {
		stop, err := step.start(cfg, logger)
		if err != nil {
			if shutdownErr := t.Shutdown(ctx); shutdownErr != nil {
				logger.Warn("telemetry rollback", "error", shutdownErr)
			}
			return nil, fmt.Errorf("start %s: %w", step.name, err)
		}
		if stop != nil {
			t.stops = append(t.stops, stopFunc{name: step.name, stop: stop})
		}
	}
	return t, nil
}

// PprofAddr is the bound pprof address, or empty when pprof is off.
func (t *Telemetry) PprofAddr() string {
	if t == nil {
		return ""
	}
	return t.pprofAddr
}

// Shutdown stops backends in reverse start order and reports every failure.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	for i := len(t.stops) - 1; i >= 0; i-- {
		s := t.stops[i]
		if err := s.stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", s.name, err))
		}
	}
	t.stops = nil
	return errors.Join(errs...)
}
