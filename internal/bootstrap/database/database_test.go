package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cashoffer/internal/bootstrap/config"
)

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "state", "cashoffer.sqlite")

	db, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if info, err := os.Stat(filepath.Dir(dsn)); err != nil || !info.IsDir() {
		t.Fatalf("sqlite directory not created: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("Open(oracle) expected error")
	}
}

func TestEnsureSQLiteDirectoryIgnoresMemory(t *testing.T) {
	for _, dsn := range []string{"", ":memory:", "local.sqlite"} {
		if err := ensureSQLiteDirectory(context.Background(), dsn); err != nil {
			t.Fatalf("ensureSQLiteDirectory(%q) error = %v", dsn, err)
		}
	}
	dir := filepath.Join(t.TempDir(), "from-uri")
	if err := ensureSQLiteDirectory(context.Background(), "file:"+filepath.Join(dir, "db.sqlite")+"?_pragma=busy_timeout(5000)"); err != nil {
		t.Fatalf("ensureSQLiteDirectory(file uri) error = %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("uri directory not created: %v", err)
	}
}
