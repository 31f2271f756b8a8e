package cmd

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/username/fintrack/backend/src/config"
	"github.com/username/fintrack/backend/src/database"
	"github.com/username/fintrack/backend/src/services"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	return rootCmd.Execute()
}

func TestServerWriteTimeoutOutlastsJobs(t *testing.T) {
	tests := []struct {
		name     string
		imports  time.Duration
		backfill time.Duration
	}{
		{"defaults", 30 * time.Second, 2 * time.Minute},
		{"long import", 45 * time.Second, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.ImportTimeout = tt.imports
			cfg.BackfillTimeout = tt.backfill
			srv := newServer(cfg, nil)
			if srv.WriteTimeout <= tt.imports || srv.WriteTimeout <= tt.backfill {
				t.Errorf("WriteTimeout = %s, import %s, backfill %s", srv.WriteTimeout, tt.imports, tt.backfill)
			}
			if srv.Addr != ":8080" {
				t.Errorf("Addr = %q", srv.Addr)
			}
		})
	}
}

func TestCommandErrorsAreReturned(t *testing.T) {
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "cli.db"))

	err := execute(t, "reconcile", "--owner", "user-1", "--wallet", "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("reconcile unknown wallet: err = %v", err)
	}
	if database.DB == nil || database.DB.Ping() == nil {
		t.Error("database was left open after a failed command")
	}

	err = execute(t, "import", "--owner", "user-1", "--file", filepath.Join(t.TempDir(), "none.csv"))
	if err == nil || !strings.Contains(err.Error(), "failed to open statement") {
		t.Errorf("import missing file: err = %v", err)
	}

	err = execute(t, "import", "--owner", "user-1", "--file", "none.csv", "--commit")
	if err == nil || !strings.Contains(err.Error(), "--wallet is required") {
		t.Errorf("commit without wallet: err = %v", err)
	}
}
