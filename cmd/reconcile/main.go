package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/eoinvoconnor/rugby-backend/internal/app"
	"github.com/eoinvoconnor/rugby-backend/internal/config"
	"github.com/eoinvoconnor/rugby-backend/internal/observability"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
	"github.com/eoinvoconnor/rugby-backend/internal/usecase"
)

type report struct {
	Imports []usecase.ImportResult `json:"imports,omitempty"`
	Run     usecase.RunResult      `json:"run"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	daysBack := flag.Int("days-back", cfg.ReconcileDaysBack, "days before today to scrape")
	daysForward := flag.Int("days-forward", cfg.ReconcileDaysForward, "days after today to scrape")
	importFirst := flag.Bool("import-first", false, "import every configured calendar feed before reconciling")
	flag.Parse()

	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	logging.SetDefault(logger)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A one-shot run has nothing to profile interactively.
	cfg.PprofEnabled = false
	telemetry, err := observability.Start(ctx, cfg, logger)
	if err != nil {
		logger.Error("start telemetry", "error", err)
		os.Exit(1)
	}

	runErr := run(ctx, cfg, logger, *daysBack, *daysForward, *importFirst)
	if err := telemetry.Shutdown(context.Background()); err != nil {
		logger.Warn("telemetry shutdown", "error", err)
	}
	if runErr != nil {
		logger.Error("reconcile run failed", "error", runErr)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *logging.Logger, daysBack, daysForward int, importFirst bool) error {
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer application.Close()

	var out report
	if importFirst {
		imports, err := application.Importer.ImportAll(ctx)
		if err != nil {
			return fmt.Errorf("import calendars: %w", err)
		}
		out.Imports = imports
	}

	result, err := application.Pipeline.RunReconciliation(ctx, daysBack, daysForward)
	if err != nil {
		return err
	}
	out.Run = result

	body, err := sonic.ConfigStd.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(body))
	return err
}
