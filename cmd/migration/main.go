package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/eoinvoconnor/rugby-backend/internal/infrastructure/repository/file"
	"github.com/eoinvoconnor/rugby-backend/internal/infrastructure/repository/postgres"
	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

const seedTimeout = 30 * time.Second

var migrationDirs = []string{"./db/migrations", "/app/db/migrations"}

type env struct {
	dbURL  string
	logger *logging.Logger
}

// A migrateCmd runs against an open migrator; seed-aliases needs none.
type migrateCmd func(m *migrate.Migrate, args []string, e env) error

var migrateCmds = map[string]migrateCmd{
	"up":      cmdUp,
	"down":    cmdDown,
	"version": cmdVersion,
	"force":   cmdForce,
	"goto":    cmdGoto,
}

func main() {
	logger := logging.NewJSON(logging.LevelInfo)

	if err := run(os.Args[1:], logger); err != nil {
		logger.Error("migration command failed", "error", err)
		_ = logger.Sync()
		if errors.Is(err, errUsage) {
			printUsage()
			os.Exit(2)
		}
		os.Exit(1)
	}
	_ = logger.Sync()
}

var errUsage = errors.New("usage")

func run(args []string, logger *logging.Logger) error {
	if len(args) == 0 {
		return errUsage
	}
	if err := loadEnvFile(os.Getenv("ENV_FILE")); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}

	rawURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if rawURL == "" {
		return errors.New("DB_URL is required")
	}
	e := env{
		dbURL:  postgres.DSN(rawURL, envBool("DB_DISABLE_PREPARED_BINARY_RESULT")),
		logger: logger,
	}

	name, rest := strings.ToLower(strings.TrimSpace(args[0])), args[1:]
	if name == "seed-aliases" {
		return seedAliases(e, rest)
	}
	cmd, ok := migrateCmds[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	dir, err := findMigrationsDir(os.Getenv("MIGRATIONS_DIR"))
	if err != nil {
		return err
	}
	m, err := migrate.New("file://"+filepath.ToSlash(dir), e.dbURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			logger.Warn("close migrator", "error", err)
		}
	}()

	return cmd(m, rest, e)
}

// ignoreNoChange treats an already-current schema as success.
func ignoreNoChange(err error, logger *logging.Logger) error {
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("schema already current")
		return nil
	}
	return err
}

func cmdUp(m *migrate.Migrate, _ []string, e env) error {
	if err := ignoreNoChange(m.Up(), e.logger); err != nil {
		return fmt.Errorf("up: %w", err)
	}
	e.logger.Info("migrations applied")
	return nil
}

func cmdDown(m *migrate.Migrate, args []string, e env) error {
	steps := 1
	if len(args) > 0 {
		n, err := positiveInt(args[0])
		if err != nil {
			return fmt.Errorf("down steps: %w", err)
		}
		steps = n
	}
	if err := ignoreNoChange(m.Steps(-steps), e.logger); err != nil {
		return fmt.Errorf("down %d: %w", steps, err)
	}
	e.logger.Info("migrations rolled back", "steps", steps)
	return nil
}

func cmdVersion(m *migrate.Migrate, _ []string, _ env) error {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Println("version: none (clean)")
		return nil
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Printf("version: %d (%s)\n", version, state)
	return nil
}

func cmdForce(m *migrate.Migrate, args []string, e env) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: force needs a version", errUsage)
	}
	version, err := versionArg(args[0])
	if err != nil {
		return err
	}
	if err := m.Force(int(version)); err != nil {
		return fmt.Errorf("force %d: %w", version, err)
	}
	e.logger.Info("schema version forced", "version", version)
	return nil
}

func cmdGoto(m *migrate.Migrate, args []string, e env) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: goto needs a version", errUsage)
	}
	version, err := versionArg(args[0])
	if err != nil {
		return err
	}
	if err := ignoreNoChange(m.Migrate(version), e.logger); err != nil {
		return fmt.Errorf("goto %d: %w", version, err)
	}
	e.logger.Info("schema migrated", "version", version)
	return nil
}

// seedAliases copies an alias JSON file into the team_aliases table.
func seedAliases(e env, args []string) error {
	path := os.Getenv("ALIAS_FILE")
	if len(args) > 0 {
		path = args[0]
	}
	if path = strings.TrimSpace(path); path == "" {
		return fmt.Errorf("%w: seed-aliases needs a path or ALIAS_FILE", errUsage)
	}

	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()

	table, err := file.NewAliasRepository(path).LoadAliasTable(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", e.dbURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	repo := postgres.NewAliasRepository(db)
	for canonical, aliases := range table {
		if err := repo.SaveAliases(ctx, canonical, aliases); err != nil {
			return fmt.Errorf("save aliases for %q: %w", canonical, err)
		}
	}
	e.logger.Info("aliases seeded", "path", path, "teams", len(table))
	return nil
}

// loadEnvFile loads path, or ./.env when path is empty and the file exists.
func loadEnvFile(path string) error {
	if path = strings.TrimSpace(path); path != "" {
		return godotenv.Load(path)
	}
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}

func positiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive: %d", n)
	}
	return n, nil
}

func versionArg(raw string) (uint, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 31)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q", raw)
	}
	return uint(v), nil
}

func findMigrationsDir(override string) (string, error) {
	candidates := migrationDirs
	if override = strings.TrimSpace(override); override != "" {
		candidates = []string{override}
	}
	for _, dir := range candidates {
		abs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			return abs, nil
		}
	}
	return "", fmt.Errorf("no migrations directory in %v", candidates)
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), "yes")
	}
	return v
}

func printUsage() {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, `usage: %[1]s <command> [args]

commands:
  up                   apply all pending migrations
  down [n]             roll back n migrations (default 1)
  version              print the current schema version
  force <v>            set the version without running migrations
  goto <v>             migrate up or down to version v
  seed-aliases [path]  load a team alias file into postgres (default ALIAS_FILE)
`, name)
}
