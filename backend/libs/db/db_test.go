package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestWithPragmas(t *testing.T) {
	cases := map[string]string{
		"":                          "",
		"data.db":                   "data.db?" + sqlitePragmas,
		"file:data.db?mode=rwc":     "file:data.db?mode=rwc&" + sqlitePragmas,
		"data.db?_busy_timeout=100": "data.db?_busy_timeout=100",
	}
	for in, want := range cases {
		if got := withPragmas(in); got != want {
			t.Fatalf("withPragmas(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewSQLiteDB(t *testing.T) {
	pool, err := NewSQLiteDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer pool.Close()

	if got := pool.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("expected single connection pool, got %d", got)
	}
	var fk int
	if err := pool.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 1 {
		t.Fatalf("expected foreign keys on")
	}
}

func TestEmptyDSN(t *testing.T) {
	if _, err := NewSQLiteDB(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
	if _, err := NewPostgresDB(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
