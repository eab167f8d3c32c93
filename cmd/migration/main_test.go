package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/eoinvoconnor/rugby-backend/internal/platform/logging"
)

func TestPositiveInt(t *testing.T) {
	t.Parallel()

	if got, err := positiveInt(" 3 "); err != nil || got != 3 {
		t.Fatalf("positiveInt: got=%d err=%v", got, err)
	}
	for _, raw := range []string{"0", "-1", "abc", ""} {
		if _, err := positiveInt(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestVersionArg(t *testing.T) {
	t.Parallel()

	if got, err := versionArg("20260301"); err != nil || got != 20260301 {
		t.Fatalf("versionArg: got=%d err=%v", got, err)
	}
	for _, raw := range []string{"-1", "x", "99999999999"} {
		if _, err := versionArg(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestFindMigrationsDir(t *testing.T) {
	dir := t.TempDir()
	got, err := findMigrationsDir(dir)
	if err != nil || got != dir {
		t.Fatalf("override: got=%q err=%v", got, err)
	}
	if _, err := findMigrationsDir(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing override")
	}
}

func TestEnvBool(t *testing.T) {
	for raw, want := range map[string]bool{"true": true, "1": true, "yes": true, "YES": true, "": false, "no": false, "0": false} {
		t.Setenv("MIGRATION_TEST_FLAG", raw)
		if got := envBool("MIGRATION_TEST_FLAG"); got != want {
			t.Fatalf("envBool(%q)=%v want %v", raw, got, want)
		}
	}
}

func TestRun_Usage(t *testing.T) {
	logger := logging.NewNop()
	if err := run(nil, logger); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got=%v", err)
	}

	t.Setenv("ENV_FILE", "")
	t.Setenv("DB_URL", "")
	if err := run([]string{"up"}, logger); err == nil || errors.Is(err, errUsage) {
		t.Fatalf("expected missing DB_URL error, got=%v", err)
	}

	t.Setenv("DB_URL", "postgres://localhost:5432/rugby")
	t.Setenv("ALIAS_FILE", "")
	if err := run([]string{"sideways"}, logger); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error for unknown command, got=%v", err)
	}
	if err := run([]string{"seed-aliases"}, logger); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error without alias path, got=%v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.env")
	if err := os.WriteFile(path, []byte("MIGRATION_TEST_VALUE=seeded\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("MIGRATION_TEST_VALUE") })

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if got := os.Getenv("MIGRATION_TEST_VALUE"); got != "seeded" {
		t.Fatalf("unexpected env value: %q", got)
	}
	if err := loadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected error for missing env file")
	}
}
