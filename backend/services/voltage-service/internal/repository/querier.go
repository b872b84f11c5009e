package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"voltwatch/backend/services/voltage-service/internal/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Timestamp layouts produced by the SQLite driver for aggregate columns, which come
// back as text instead of time.Time.
var textTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// nullTime scans nullable timestamps from either driver.
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (n *nullTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		n.Time, n.Valid = time.Time{}, false
		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("repository: cannot scan %T into timestamp", src)
	}
}

func (n *nullTime) parse(value string) error {
	value = strings.TrimSpace(value)
	for _, layout := range textTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("repository: unparsable timestamp %q", value)
}

func (n nullTime) ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// whereReadings renders the filter as a WHERE clause with positional parameters
// numbered in order of appearance, which both pgx and SQLite accept.
func whereReadings(f models.ReadingFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.DeviceID != "" {
		add("device_id = $%d", f.DeviceID)
	}
	if !f.Since.IsZero() {
		add("recorded_at >= $%d", f.Since.UTC())
	}
	if !f.Until.IsZero() {
		add("recorded_at <= $%d", f.Until.UTC())
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// aggregateReadings computes count/min/max/avg/earliest/latest for the filter.
func aggregateReadings(ctx context.Context, q querier, f models.ReadingFilter) (models.VoltageStats, error) {
	where, args := whereReadings(f)
	query := `
		SELECT COUNT(*), MIN(voltage), MAX(voltage), AVG(voltage), MIN(recorded_at), MAX(recorded_at)
		FROM voltage_readings
		` + where

	var (
		stats         models.VoltageStats
		minV, maxV    sql.NullFloat64
		avgV          sql.NullFloat64
		first, latest nullTime
	)
	if err := q.QueryRowContext(ctx, query, args...).Scan(&stats.Count, &minV, &maxV, &avgV, &first, &latest); err != nil {
		return models.VoltageStats{}, err
	}
	if stats.Count == 0 {
		return models.VoltageStats{}, nil
	}
	stats.Min = floatPtr(minV)
	stats.Max = floatPtr(maxV)
	stats.Avg = floatPtr(avgV)
	stats.FirstReading = first.ptr()
	stats.LastReading = latest.ptr()
	return stats, nil
}
