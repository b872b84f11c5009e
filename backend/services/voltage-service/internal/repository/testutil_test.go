package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	libdb "voltwatch/backend/libs/db"
	"voltwatch/backend/services/voltage-service/internal/config"
	servicedb "voltwatch/backend/services/voltage-service/internal/db"
	"voltwatch/backend/services/voltage-service/internal/models"
	"voltwatch/backend/services/voltage-service/internal/repository"
)

// setupTestDB opens a throwaway SQLite file with the production schema applied.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	sqlDB, err := libdb.NewSQLiteDB(context.Background(), filepath.Join(t.TempDir(), "voltage.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	if err := servicedb.Migrate(context.Background(), sqlDB, config.DriverSQLite); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return sqlDB
}

func seedReading(t *testing.T, repo *repository.ReadingRepository, deviceID string, voltage float64, ts time.Time) models.Reading {
	t.Helper()
	reading := models.Reading{DeviceID: deviceID, Voltage: voltage, Timestamp: ts}
	if err := repo.Insert(context.Background(), &reading); err != nil {
		t.Fatalf("seed reading: %v", err)
	}
	return reading
}

func float(v float64) *float64 { return &v }
