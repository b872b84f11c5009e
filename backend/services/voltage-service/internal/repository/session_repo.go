package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"voltwatch/backend/services/voltage-service/internal/models"
)

var (
	// ErrSessionNotFound indicates missing session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrDuplicateSession indicates the session id is already taken.
	ErrDuplicateSession = errors.New("session id already exists")
	// ErrSessionClosed indicates the session has already been ended.
	ErrSessionClosed = errors.New("session already closed")
)

const sessionColumns = `id, session_id, device_id, start_time, end_time, min_voltage, max_voltage, avg_voltage, reading_count, duration, operator, created_at`

// SessionRepository handles persistence of welding sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts an open session. An existing session id is left untouched and
// reported as ErrDuplicateSession.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `
		INSERT INTO welding_sessions (session_id, device_id, start_time, operator, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		session.SessionID,
		session.DeviceID,
		session.StartTime.UTC(),
		session.Operator,
		session.CreatedAt.UTC(),
	).Scan(&session.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDuplicateSession
	}
	return err
}

// Get fetches a session by its caller supplied id.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	return getSession(ctx, r.db, sessionID)
}

// List returns sessions ordered by start time, newest first.
func (r *SessionRepository) List(ctx context.Context, limit, offset int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
		SELECT ` + sessionColumns + `
		FROM welding_sessions
		ORDER BY start_time DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// FindOpenByDevice returns the most recently started open session for the device.
func (r *SessionRepository) FindOpenByDevice(ctx context.Context, deviceID string) (*models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM welding_sessions
		WHERE device_id = $1 AND end_time IS NULL
		ORDER BY start_time DESC, id DESC
		LIMIT 1
	`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, deviceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// Close ends an open session. The session row is read, statistics are computed over
// the readings selected by window and the row is updated in one transaction; the
// update only applies while end_time is still NULL so concurrent closes cannot both win.
func (r *SessionRepository) Close(
	ctx context.Context,
	sessionID string,
	closedAt time.Time,
	window func(models.Session) models.ReadingFilter,
) (*models.Session, models.VoltageStats, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, models.VoltageStats{}, err
	}
	defer tx.Rollback()

	session, err := getSession(ctx, tx, sessionID)
	if err != nil {
		return nil, models.VoltageStats{}, err
	}
	if !session.Open() {
		return nil, models.VoltageStats{}, ErrSessionClosed
	}

	stats, err := aggregateReadings(ctx, tx, window(*session))
	if err != nil {
		return nil, models.VoltageStats{}, err
	}

	closedAt = closedAt.UTC()
	duration := int64(closedAt.Sub(session.StartTime) / time.Second)
	if duration < 0 {
		duration = 0
	}

	const query = `
		UPDATE welding_sessions
		SET end_time = $1,
		    min_voltage = $2,
		    max_voltage = $3,
		    avg_voltage = $4,
		    reading_count = $5,
		    duration = $6
		WHERE session_id = $7 AND end_time IS NULL
	`
	result, err := tx.ExecContext(ctx, query,
		closedAt,
		nullableFloat(stats.Min),
		nullableFloat(stats.Max),
		nullableFloat(stats.Avg),
		stats.Count,
		duration,
		sessionID,
	)
	if err != nil {
		return nil, models.VoltageStats{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, models.VoltageStats{}, err
	}
	if affected == 0 {
		return nil, models.VoltageStats{}, ErrSessionClosed
	}
	if err := tx.Commit(); err != nil {
		return nil, models.VoltageStats{}, err
	}

	count := stats.Count
	session.EndTime = &closedAt
	session.MinVoltage = stats.Min
	session.MaxVoltage = stats.Max
	session.AvgVoltage = stats.Avg
	session.ReadingCount = &count
	session.Duration = &duration
	return session, stats, nil
}

func getSession(ctx context.Context, q querier, sessionID string) (*models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM welding_sessions
		WHERE session_id = $1
	`
	s, err := scanSession(q.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s                models.Session
		endTime          nullTime
		minV, maxV, avgV sql.NullFloat64
		count, duration  sql.NullInt64
	)
	if err := row.Scan(
		&s.ID,
		&s.SessionID,
		&s.DeviceID,
		&s.StartTime,
		&endTime,
		&minV,
		&maxV,
		&avgV,
		&count,
		&duration,
		&s.Operator,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	s.StartTime = s.StartTime.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.EndTime = endTime.ptr()
	s.MinVoltage = floatPtr(minV)
	s.MaxVoltage = floatPtr(maxV)
	s.AvgVoltage = floatPtr(avgV)
	s.ReadingCount = intPtr(count)
	s.Duration = intPtr(duration)
	return &s, nil
}
