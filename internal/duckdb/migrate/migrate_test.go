package migrate

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunCreatesReportTables(t *testing.T) {
	db := openTestDB(t)
	r := NewRunner(db)

	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, table := range []string{"schema_migrations", "runs", "series_points", "skips", "latency", "rolling_latency", "drives", "edges", "error_markers"} {
		var name string
		err := db.QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	r := NewRunner(db)

	if err := r.Run(); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := r.Run(); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	latest, err := Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	cur, err := r.appliedVersion()
	if err != nil {
		t.Fatalf("appliedVersion: %v", err)
	}
	if cur != latest {
		t.Errorf("applied version = %d, want %d", cur, latest)
	}
}

func TestVersionBeforeRun(t *testing.T) {
	db := openTestDB(t)
	r := NewRunner(db)

	latest, err := Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest != 3 {
		t.Fatalf("Latest = %d, want 3", latest)
	}

	if err := r.bootstrap(); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	cur, err := r.appliedVersion()
	if err != nil {
		t.Fatalf("appliedVersion: %v", err)
	}
	if cur != 0 {
		t.Errorf("applied version before run = %d, want 0", cur)
	}
}

func TestRunRejectsNewerSchema(t *testing.T) {
	db := openTestDB(t)
	r := NewRunner(db)
	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	latest, err := Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if _, err := db.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", latest+1, "999_future.sql"); err != nil {
		t.Fatalf("insert future version: %v", err)
	}

	if err := r.Run(); !errors.Is(err, ErrSchemaTooNew) {
		t.Fatalf("Run error = %v, want ErrSchemaTooNew", err)
	}
}
