package db

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLitePool pins the pool to one connection that is never recycled: SQLite has a
// single writer and ":memory:" databases live only as long as their connection.
var SQLitePool = PoolOptions{
	MaxOpenConns: 1,
	MaxIdleConns: 1,
}

const sqlitePragmas = "_busy_timeout=5000&_foreign_keys=on"

// NewSQLiteDB opens a SQLite database file.
func NewSQLiteDB(ctx context.Context, dsn string) (*sql.DB, error) {
	return open(ctx, "sqlite3", withPragmas(strings.TrimSpace(dsn)), SQLitePool)
}

func withPragmas(dsn string) string {
	if dsn == "" || strings.Contains(dsn, "_busy_timeout") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqlitePragmas
	}
	return dsn + "?" + sqlitePragmas
}
