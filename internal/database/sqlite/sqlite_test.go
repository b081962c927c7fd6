package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

func testDBConfig(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	return &config.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "attendance.db"),
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

// setupTestPool opens a migrated database in a temporary directory
func setupTestPool(t *testing.T) *Pool {
	t.Helper()
	pool, err := Open(context.Background(), testDBConfig(t))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// seedEmployee inserts an employee the ledger rows can reference
func seedEmployee(t *testing.T, pool *Pool, empID, name string) {
	t.Helper()
	repo := NewEmployeeRepository(pool)
	if err := repo.UpsertEmployee(context.Background(), &database.Employee{EmpID: empID, Name: name, Role: "dev", Team: "core"}); err != nil {
		t.Fatalf("seed employee %s: %v", empID, err)
	}
}

func TestNewPool_RequiresPath(t *testing.T) {
	if _, err := NewPool(&config.DatabaseConfig{}); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	cfg := testDBConfig(t)
	ctx := context.Background()

	pool, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("first Open() error: %v", err)
	}
	pool.Close()

	pool, err = Open(ctx, cfg)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	defer pool.Close()

	versions, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("MigrationsApplied() error: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 migrations, got %v", versions)
	}
	if versions[0] != "001_attendance.sql" || versions[1] != "002_dashboard.sql" {
		t.Errorf("unexpected migration order: %v", versions)
	}

	pending, err := pool.PendingMigrations(ctx)
	if err != nil {
		t.Fatalf("PendingMigrations() error: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending migrations, got %v", pending)
	}
}

func TestDSN(t *testing.T) {
	got := dsn(&config.DatabaseConfig{Path: "db/a.db", BusyTimeout: 2 * time.Second})
	for _, want := range []string{"file:db/a.db?", "busy_timeout%282000%29", "journal_mode%28WAL%29", "foreign_keys%281%29", "_txlock=immediate"} {
		if !strings.Contains(got, want) {
			t.Errorf("dsn %q missing %q", got, want)
		}
	}
}
