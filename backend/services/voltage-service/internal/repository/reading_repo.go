package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"voltwatch/backend/services/voltage-service/internal/models"
)

// ReadingRepository persists voltage readings. Rows are append-only.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository returns repository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Insert stores a new reading and fills the store-assigned ID.
func (r *ReadingRepository) Insert(ctx context.Context, reading *models.Reading) error {
	if reading.CreatedAt.IsZero() {
		reading.CreatedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO voltage_readings (device_id, voltage, min_voltage, max_voltage, avg_voltage, recorded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		reading.DeviceID,
		reading.Voltage,
		nullableFloat(reading.MinVoltage),
		nullableFloat(reading.MaxVoltage),
		nullableFloat(reading.AvgVoltage),
		reading.Timestamp.UTC(),
		reading.CreatedAt.UTC(),
	).Scan(&reading.ID)
}

// Query returns readings newest first; ties on timestamp resolve by insertion order.
func (r *ReadingRepository) Query(ctx context.Context, filter models.ReadingFilter, limit, offset int) ([]models.Reading, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	where, args := whereReadings(filter)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT id, device_id, voltage, min_voltage, max_voltage, avg_voltage, recorded_at, created_at
		FROM voltage_readings
		%s
		ORDER BY recorded_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := make([]models.Reading, 0)
	for rows.Next() {
		var (
			rd               models.Reading
			minV, maxV, avgV sql.NullFloat64
		)
		if err := rows.Scan(
			&rd.ID,
			&rd.DeviceID,
			&rd.Voltage,
			&minV,
			&maxV,
			&avgV,
			&rd.Timestamp,
			&rd.CreatedAt,
		); err != nil {
			return nil, err
		}
		rd.MinVoltage = floatPtr(minV)
		rd.MaxVoltage = floatPtr(maxV)
		rd.AvgVoltage = floatPtr(avgV)
		rd.Timestamp = rd.Timestamp.UTC()
		rd.CreatedAt = rd.CreatedAt.UTC()
		readings = append(readings, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return readings, nil
}

// Count returns the number of readings matching filter.
func (r *ReadingRepository) Count(ctx context.Context, filter models.ReadingFilter) (int64, error) {
	where, args := whereReadings(filter)
	query := `SELECT COUNT(*) FROM voltage_readings ` + where
	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Aggregate computes voltage statistics for the filter.
func (r *ReadingRepository) Aggregate(ctx context.Context, filter models.ReadingFilter) (models.VoltageStats, error) {
	return aggregateReadings(ctx, r.db, filter)
}
