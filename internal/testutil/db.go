package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xxxsen/evoting/internal/config"
	"github.com/xxxsen/evoting/internal/db"
	"github.com/xxxsen/evoting/internal/repo"
)

// OpenTestDB returns a migrated, empty database. It uses a throwaway sqlite
// file unless TEST_DB_HOST points at a postgres instance, whose tables are
// truncated first.
func OpenTestDB(t *testing.T) *repo.DB {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver: db.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "evoting.db"),
	}
	if host := os.Getenv("TEST_DB_HOST"); host != "" {
		cfg = config.DatabaseConfig{
			Driver:       db.DriverPostgres,
			Host:         host,
			Port:         5432,
			User:         envOr("TEST_DB_USER", "evoting"),
			Password:     envOr("TEST_DB_PASSWORD", "evoting_pass"),
			DBName:       envOr("TEST_DB_NAME", "evoting_test"),
			SSLMode:      "disable",
			MaxOpenConns: 20,
		}
	}
	conn, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := db.ApplyMigrations(conn, cfg.Driver); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if cfg.Driver == db.DriverPostgres {
		if _, err := conn.Exec("TRUNCATE ballots, otp_codes, candidates, voters RESTART IDENTITY CASCADE"); err != nil {
			t.Fatalf("truncate: %v", err)
		}
	}
	return repo.NewDB(conn, cfg.Driver, 10*time.Second)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
