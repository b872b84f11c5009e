package db

import (
	"context"
	"database/sql"
	"fmt"

	libdb "voltwatch/backend/libs/db"
	"voltwatch/backend/services/voltage-service/internal/config"
)

// Open returns a pooled connection for the configured driver.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case config.DriverPostgres:
		return libdb.NewPostgresDB(ctx, dsn)
	case config.DriverSQLite:
		return libdb.NewSQLiteDB(ctx, dsn)
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", driver)
	}
}

// SchemaSQL returns the DDL for the given driver.
func SchemaSQL(driver string) (string, error) {
	switch driver {
	case config.DriverPostgres:
		return postgresSchema, nil
	case config.DriverSQLite:
		return sqliteSchema, nil
	default:
		return "", fmt.Errorf("db: unsupported driver %q", driver)
	}
}

// Migrate applies the idempotent schema for the driver.
func Migrate(ctx context.Context, sqlDB *sql.DB, driver string) error {
	schema, err := SchemaSQL(driver)
	if err != nil {
		return err
	}
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("db: apply schema: %w", err)
	}
	return nil
}
