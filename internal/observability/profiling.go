package observability

import (
	"context"

	"github.com/eoinvoconnor/rugby-backend/internal/config"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
	"github.com/grafana/pyroscope-go"
)

// Reconcile runs are short and bursty; mutex and block profiles add little.
var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

func startProfiler(cfg config.Config, logger *logging.Logger) (func(context.Context) error, error) {
	if !cfg.PyroscopeEnabled {
		logger.Info("profiling off", "reason", "PYROSCOPE_ENABLED=false")
		return nil, nil
	}

	app := cfg.PyroscopeAppName
	if app == "" {
		app = cfg.ServiceName
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   app,
		ServerAddress:     cfg.PyroscopeServerAddress,
		AuthToken:         cfg.PyroscopeAuthToken,
		BasicAuthUser:     cfg.PyroscopeBasicAuthUser,
		BasicAuthPassword: cfg.PyroscopeBasicAuthPassword,
		UploadRate:        cfg.PyroscopeUploadRate,
		ProfileTypes:      profileTypes,
		Tags: map[string]string{
			"env":   cfg.AppEnv,
			"store": cfg.StoreDriver,
		},
	})
	if err != nil {
		return nil, err
	}
	logger.Info("profiling on", "server", cfg.PyroscopeServerAddress, "application", app)
	return func(context.Context) error { return profiler.Stop() }, nil
}
