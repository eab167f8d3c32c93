package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/domain/competition"
	"github.com/eoinvoconnor/rugby-backend/internal/domain/prediction"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

const maxReconcileDays = 30

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                      string
	ServiceName                 string
	ServiceVersion              string
	HTTPAddr                    string
	ReadTimeout                 time.Duration
	WriteTimeout                time.Duration
	CORSAllowedOrigins          []string
	LogLevel                    logging.Level
	LogFormat                   string
	StoreDriver                 string
	StoreDataDir                string
	DBURL                       string
	DBDisablePreparedBinary     bool
	CacheEnabled                bool
	CacheTTL                    time.Duration
	ScoresURLPattern            string
	ScoresTimeout               time.Duration
	ScoresMaxWorkers            int
	ScoresCircuitEnabled        bool
	ScoresCircuitFailureCount   int
	ScoresCircuitOpenTimeout    time.Duration
	ScoresCircuitHalfOpenMaxReq int
	CalendarTimeout             time.Duration
	CalendarMaxWorkers          int
	Competitions                []competition.Competition
	AliasFile                   string
	DedupTolerance              time.Duration
	MatchTolerance              time.Duration
	Tiers                       prediction.Tiers
	ReconcileDaysBack           int
	ReconcileDaysForward        int
	InternalJobToken            string
	UptraceEnabled              bool
	UptraceDSN                  string
	PprofEnabled                bool
	PprofAddr                   string
	PyroscopeEnabled            bool
	PyroscopeServerAddress      string
	PyroscopeAppName            string
	PyroscopeAuthToken          string
	PyroscopeBasicAuthUser      string
	PyroscopeBasicAuthPassword  string
	PyroscopeUploadRate         time.Duration
}

type competitionEntry struct {
	ID      string `validate:"required,max=64"`
	Name    string `validate:"required"`
	Color   string `validate:"omitempty,hexcolor"`
	FeedURL string `validate:"omitempty,url"`
}

// Load reads configuration from the environment. A .env file (or the file
// named by ENV_FILE) seeds variables that are not already set.
func Load() (Config, error) {
	if err := loadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		return Config{}, err
	}

	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	logFormat := strings.ToLower(strings.TrimSpace(getEnv("APP_LOG_FORMAT", logging.FormatJSON)))
	if logFormat != logging.FormatJSON && logFormat != logging.FormatConsole {
		return Config{}, fmt.Errorf("invalid APP_LOG_FORMAT %q: valid values are %s, %s", logFormat, logging.FormatJSON, logging.FormatConsole)
	}

	storeDriver, err := parseStoreDriver(getEnv("STORE_DRIVER", StoreMemory))
	if err != nil {
		return Config{}, err
	}
	dbURL := strings.TrimSpace(getEnv("DB_URL", ""))
	if storeDriver == StorePostgres && dbURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required when STORE_DRIVER=postgres")
	}
	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "6h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	scoresURLPattern := strings.TrimSpace(getEnv("SCORES_URL_PATTERN", "https://www.bbc.com/sport/rugby-union/scores-fixtures/{date}"))
	if !strings.Contains(scoresURLPattern, "{date}") {
		return Config{}, fmt.Errorf("SCORES_URL_PATTERN must contain {date}")
	}
	scoresTimeout, err := time.ParseDuration(getEnv("SCORES_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORES_TIMEOUT: %w", err)
	}
	if scoresTimeout <= 0 {
		return Config{}, fmt.Errorf("SCORES_TIMEOUT must be > 0")
	}
	scoresMaxWorkers, err := getEnvAsInt("SCORES_MAX_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORES_MAX_WORKERS: %w", err)
	}
	if scoresMaxWorkers < 1 {
		return Config{}, fmt.Errorf("SCORES_MAX_WORKERS must be >= 1")
	}
	scoresCircuitEnabled, err := strconv.ParseBool(getEnv("SCORES_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORES_CIRCUIT_ENABLED: %w", err)
	}
	scoresCircuitFailureCount, err := getEnvAsInt("SCORES_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORES_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if scoresCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("SCORES_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	scoresCircuitOpenTimeout, err := time.ParseDuration(getEnv("SCORES_CIRCUIT_OPEN_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORES_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if scoresCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("SCORES_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	scoresCircuitHalfOpenMaxReq, err := getEnvAsInt("SCORES_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORES_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if scoresCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("SCORES_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	calendarTimeout, err := time.ParseDuration(getEnv("CALENDAR_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CALENDAR_TIMEOUT: %w", err)
	}
	if calendarTimeout <= 0 {
		return Config{}, fmt.Errorf("CALENDAR_TIMEOUT must be > 0")
	}
	calendarMaxWorkers, err := getEnvAsInt("CALENDAR_MAX_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse CALENDAR_MAX_WORKERS: %w", err)
	}
	if calendarMaxWorkers < 1 {
		return Config{}, fmt.Errorf("CALENDAR_MAX_WORKERS must be >= 1")
	}

	competitions, err := parseCompetitions(getEnv("COMPETITIONS", ""))
	if err != nil {
		return Config{}, fmt.Errorf("parse COMPETITIONS: %w", err)
	}

	dedupTolerance, err := time.ParseDuration(getEnv("DEDUP_TOLERANCE", "48h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DEDUP_TOLERANCE: %w", err)
	}
	if dedupTolerance <= 0 {
		return Config{}, fmt.Errorf("DEDUP_TOLERANCE must be > 0")
	}
	matchTolerance, err := time.ParseDuration(getEnv("MATCH_TOLERANCE", "36h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse MATCH_TOLERANCE: %w", err)
	}
	if matchTolerance <= 0 {
		return Config{}, fmt.Errorf("MATCH_TOLERANCE must be > 0")
	}

	defaults := prediction.DefaultTiers()
	correctWinner, err := getEnvAsInt("POINTS_CORRECT_WINNER", defaults.CorrectWinner)
	if err != nil {
		return Config{}, fmt.Errorf("parse POINTS_CORRECT_WINNER: %w", err)
	}
	exactMargin, err := getEnvAsInt("POINTS_EXACT_MARGIN", defaults.ExactMargin)
	if err != nil {
		return Config{}, fmt.Errorf("parse POINTS_EXACT_MARGIN: %w", err)
	}
	tiers := prediction.Tiers{CorrectWinner: correctWinner, ExactMargin: exactMargin}
	if err := tiers.Validate(); err != nil {
		return Config{}, err
	}

	daysBack, err := getEnvAsInt("RECONCILE_DAYS_BACK", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse RECONCILE_DAYS_BACK: %w", err)
	}
	daysForward, err := getEnvAsInt("RECONCILE_DAYS_FORWARD", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse RECONCILE_DAYS_FORWARD: %w", err)
	}
	if daysBack < 0 || daysBack > maxReconcileDays || daysForward < 0 || daysForward > maxReconcileDays {
		return Config{}, fmt.Errorf("RECONCILE_DAYS_BACK and RECONCILE_DAYS_FORWARD must be within 0..%d", maxReconcileDays)
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	// A reconcile run fetches a whole window, so writes get more room.
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "120s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	cfg := Config{
		AppEnv:                      appEnv,
		ServiceName:                 getEnv("APP_SERVICE_NAME", "rugby-backend"),
		ServiceVersion:              getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                    getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                 readTimeout,
		WriteTimeout:                writeTimeout,
		CORSAllowedOrigins:          splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:                    logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
		LogFormat:                   logFormat,
		StoreDriver:                 storeDriver,
		StoreDataDir:                strings.TrimSpace(getEnv("STORE_DATA_DIR", "./data")),
		DBURL:                       dbURL,
		DBDisablePreparedBinary:     dbDisablePreparedBinary,
		CacheEnabled:                cacheEnabled,
		CacheTTL:                    cacheTTL,
		ScoresURLPattern:            scoresURLPattern,
		ScoresTimeout:               scoresTimeout,
		ScoresMaxWorkers:            scoresMaxWorkers,
		ScoresCircuitEnabled:        scoresCircuitEnabled,
		ScoresCircuitFailureCount:   scoresCircuitFailureCount,
		ScoresCircuitOpenTimeout:    scoresCircuitOpenTimeout,
		ScoresCircuitHalfOpenMaxReq: scoresCircuitHalfOpenMaxReq,
		CalendarTimeout:             calendarTimeout,
		CalendarMaxWorkers:          calendarMaxWorkers,
		Competitions:                competitions,
		AliasFile:                   strings.TrimSpace(getEnv("ALIAS_FILE", "")),
		DedupTolerance:              dedupTolerance,
		MatchTolerance:              matchTolerance,
		Tiers:                       tiers,
		ReconcileDaysBack:           daysBack,
		ReconcileDaysForward:        daysForward,
		InternalJobToken:            strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		UptraceEnabled:              uptraceEnabled,
		UptraceDSN:                  uptraceDSN,
		PprofEnabled:                pprofEnabled,
		PprofAddr:                   pprofAddr,
		PyroscopeEnabled:            pyroscopeEnabled,
		PyroscopeServerAddress:      pyroscopeServerAddress,
		PyroscopeAuthToken:          strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:      strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:  strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:         pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PprofEnabled && cfg.PprofAddr == "" {
		cfg.PprofAddr = ":6060"
	}
	if cfg.StoreDriver == StoreFile && cfg.StoreDataDir == "" {
		return Config{}, fmt.Errorf("STORE_DATA_DIR is required when STORE_DRIVER=file")
	}
	if appEnv == EnvProd && cfg.InternalJobToken == "" {
		return Config{}, fmt.Errorf("INTERNAL_JOB_TOKEN is required when APP_ENV=prod")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// parseCompetitions reads "id|name|color|feed_url" items separated by ";".
// Color and feed URL may be empty.
func parseCompetitions(raw string) ([]competition.Competition, error) {
	validate := validator.New()
	out := make([]competition.Competition, 0, 4)
	seen := make(map[string]struct{}, 4)
	for _, part := range strings.Split(raw, ";") {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}

		segments := strings.Split(item, "|")
		for len(segments) < 4 {
			segments = append(segments, "")
		}
		if len(segments) > 4 {
			return nil, fmt.Errorf("invalid competition %q, expected id|name|color|feed_url", item)
		}
		entry := competitionEntry{
			ID:      strings.ToLower(strings.TrimSpace(segments[0])),
			Name:    strings.TrimSpace(segments[1]),
			Color:   strings.TrimSpace(segments[2]),
			FeedURL: strings.TrimSpace(segments[3]),
		}
		if entry.Name == "" {
			entry.Name = entry.ID
		}
		if err := validate.Struct(entry); err != nil {
			return nil, fmt.Errorf("invalid competition %q: %w", item, err)
		}
		if _, exists := seen[entry.ID]; exists {
			return nil, fmt.Errorf("duplicate competition id %q", entry.ID)
		}
		seen[entry.ID] = struct{}{}

		out = append(out, competition.Competition{
			ID:      entry.ID,
			Name:    entry.Name,
			Color:   entry.Color,
			FeedURL: entry.FeedURL,
		})
	}
	return out, nil
}

func parseStoreDriver(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case StoreMemory, StoreFile, StorePostgres:
		return value, nil
	default:
		return "", fmt.Errorf("invalid STORE_DRIVER %q: valid values are %s, %s, %s", v, StoreMemory, StoreFile, StorePostgres)
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
