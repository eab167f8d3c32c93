package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/eoinvoconnor/rugby-backend/external/calendarfeed"
	"github.com/eoinvoconnor/rugby-backend/external/scoresite"
	"github.com/eoinvoconnor/rugby-backend/internal/config"
	"github.com/eoinvoconnor/rugby-backend/internal/domain/competition"
	"github.com/eoinvoconnor/rugby-backend/internal/domain/fixture"
	"github.com/eoinvoconnor/rugby-backend/internal/domain/prediction"
	"github.com/eoinvoconnor/rugby-backend/internal/domain/teamname"
	cacherepo "github.com/eoinvoconnor/rugby-backend/internal/infrastructure/repository/cache"
	"github.com/eoinvoconnor/rugby-backend/internal/infrastructure/repository/file"
	"github.com/eoinvoconnor/rugby-backend/internal/infrastructure/repository/memory"
	"github.com/eoinvoconnor/rugby-backend/internal/infrastructure/repository/postgres"
	"github.com/eoinvoconnor/rugby-backend/internal/interfaces/httpapi"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/cache"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/resilience"
	"github.com/eoinvoconnor/rugby-backend/internal/usecase"
	"github.com/jmoiron/sqlx"
)

const aliasesFile = "aliases.json"

// App holds the wired services shared by the HTTP server and the one-shot
// reconcile command.
type App struct {
	Config   config.Config
	Logger   *logging.Logger
	Pipeline *usecase.PipelineService
	Importer *usecase.CalendarImportService
	Scorer   *usecase.ScoringService
	Fixtures *usecase.FixtureService

	db *sqlx.DB
}

type stores struct {
	fixtures    fixture.Store
	predictions prediction.Repository
	aliases     teamname.Repository
	db          *sqlx.DB
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	backing, err := openStores(cfg, logger)
	if err != nil {
		return nil, err
	}

	var pageCache *cache.Store
	var competitions competition.Repository = memory.NewCompetitionRepository(cfg.Competitions)
	aliases := backing.aliases
	if cfg.CacheEnabled {
		shared := cache.NewStore(cfg.CacheTTL)
		pageCache = shared
		competitions = cacherepo.NewCompetitionRepository(competitions, shared)
		aliases = cacherepo.NewAliasRepository(aliases, shared)
	}

	table, err := aliases.LoadAliasTable(ctx)
	if err != nil {
		closeDB(backing.db, logger)
		return nil, fmt.Errorf("load alias table: %w", err)
	}
	resolver := teamname.NewTableResolver(table)
	normalizer := teamname.NewNormalizer(resolver, teamname.WithCompetitionTokens(competitionTokens(cfg.Competitions)))
	logger.Info("alias table loaded", "canonical_names", len(resolver.Names()), "store", cfg.StoreDriver)

	scraper := scoresite.NewClient(scoresite.ClientConfig{
		URLPattern: cfg.ScoresURLPattern,
		Timeout:    cfg.ScoresTimeout,
		MaxWorkers: cfg.ScoresMaxWorkers,
		Logger:     logger.Named("scoresite"),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.ScoresCircuitEnabled,
			FailureThreshold: cfg.ScoresCircuitFailureCount,
			OpenTimeout:      cfg.ScoresCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.ScoresCircuitHalfOpenMaxReq,
		},
		PageCache: pageCache,
	})
	feeds := calendarfeed.NewClient(calendarfeed.ClientConfig{
		Timeout: cfg.CalendarTimeout,
		Logger:  logger.Named("calendarfeed"),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: cfg.ScoresCircuitFailureCount,
			OpenTimeout:      cfg.ScoresCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.ScoresCircuitHalfOpenMaxReq,
		},
	})

	reconciler := usecase.NewReconcileService(backing.fixtures, normalizer, usecase.ReconcileConfig{
		MatchTolerance: cfg.MatchTolerance,
		KnownTeams:     resolver.Names(),
		Logger:         logger.Named("reconciler"),
	})
	scorer := usecase.NewScoringService(backing.fixtures, backing.predictions, cfg.Tiers, logger.Named("scorer"),
		usecase.WithTeamNormalizer(normalizer),
	)
	importer := usecase.NewCalendarImportService(
		competitions,
		backing.fixtures,
		normalizer,
		calendarfeed.NewParser(),
		feeds,
		usecase.CalendarImportConfig{MaxWorkers: cfg.CalendarMaxWorkers, Logger: logger.Named("importer")},
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Pipeline: usecase.NewPipelineService(scraper, reconciler, scorer, logger.Named("pipeline")),
		Importer: importer,
		Scorer:   scorer,
		Fixtures: usecase.NewFixtureService(competitions, backing.fixtures),
		db:       backing.db,
	}, nil
}

// Close releases the database pool, if any.
func (a *App) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func NewHTTPServer(a *App) (*http.Server, error) {
	if a == nil {
		return nil, errors.New("app is required")
	}
	cfg := a.Config

	handler := httpapi.NewHandler(
		a.Pipeline,
		a.Importer,
		a.Scorer,
		a.Fixtures,
		httpapi.ReconcileWindow{DaysBack: cfg.ReconcileDaysBack, DaysForward: cfg.ReconcileDaysForward},
		a.Logger,
	)
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		ServiceName:        cfg.ServiceName,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalJobToken:   cfg.InternalJobToken,
	}, a.Logger)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}

func openStores(cfg config.Config, logger *logging.Logger) (stores, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := openPostgres(cfg)
		if err != nil {
			return stores{}, err
		}
		logger.Info("store selected", "driver", cfg.StoreDriver, "db_name", postgres.DatabaseName(cfg.DBURL))
		var aliases teamname.Repository = postgres.NewAliasRepository(db)
		if cfg.AliasFile != "" {
			aliases = file.NewAliasRepository(cfg.AliasFile)
		}
		return stores{
			fixtures:    postgres.NewFixtureStore(db, cfg.DedupTolerance),
			predictions: postgres.NewPredictionRepository(db),
			aliases:     aliases,
			db:          db,
		}, nil

	case config.StoreFile:
		fixtures, err := file.NewFixtureStore(cfg.StoreDataDir, memory.WithDedupTolerance(cfg.DedupTolerance))
		if err != nil {
			return stores{}, fmt.Errorf("open file fixture store: %w", err)
		}
		predictions, err := file.NewPredictionRepository(cfg.StoreDataDir)
		if err != nil {
			return stores{}, fmt.Errorf("open file prediction store: %w", err)
		}
		aliasPath := cfg.AliasFile
		if aliasPath == "" {
			aliasPath = filepath.Join(cfg.StoreDataDir, aliasesFile)
		}
		logger.Info("store selected", "driver", cfg.StoreDriver, "data_dir", cfg.StoreDataDir)
		return stores{
			fixtures:    fixtures,
			predictions: predictions,
			aliases:     file.NewAliasRepository(aliasPath),
		}, nil

	default:
		logger.Warn("store selected", "driver", config.StoreMemory, "note", "state is lost on restart")
		var aliases teamname.Repository = memory.NewAliasRepository(nil)
		if cfg.AliasFile != "" {
			aliases = file.NewAliasRepository(cfg.AliasFile)
		}
		return stores{
			fixtures:    memory.NewFixtureStore(nil, memory.WithDedupTolerance(cfg.DedupTolerance)),
			predictions: memory.NewPredictionRepository(nil),
			aliases:     aliases,
		}, nil
	}
}

func competitionTokens(items []competition.Competition) []string {
	out := append([]string(nil), teamname.DefaultCompetitionTokens...)
	for _, item := range items {
		if item.Name != "" {
			out = append(out, item.Name)
		}
	}
	return out
}

func closeDB(db *sqlx.DB, logger *logging.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Warn("close database failed", "error", err)
	}
}
