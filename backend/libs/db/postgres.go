package db

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresPool is the default pool for a shared Postgres server.
var PostgresPool = PoolOptions{
	MaxOpenConns:    25,
	MaxIdleConns:    5,
	ConnMaxLifetime: time.Hour,
	ConnMaxIdleTime: 30 * time.Minute,
}

// NewPostgresDB opens a pgx backed pool.
func NewPostgresDB(ctx context.Context, dsn string) (*sql.DB, error) {
	return open(ctx, "pgx", dsn, PostgresPool)
}
