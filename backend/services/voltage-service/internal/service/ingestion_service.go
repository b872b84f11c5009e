package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"voltwatch/backend/services/voltage-service/internal/models"
	redisstore "voltwatch/backend/services/voltage-service/internal/redis"
	"voltwatch/backend/services/voltage-service/internal/repository"
	"voltwatch/backend/services/voltage-service/internal/stats"
)

// ReadingInput is a device submission. Pointer fields are optional; Voltage is required.
type ReadingInput struct {
	DeviceID   string
	Voltage    *float64
	MinVoltage *float64
	MaxVoltage *float64
	AvgVoltage *float64
	Timestamp  *time.Time
}

// StartSessionInput starts a welding session.
type StartSessionInput struct {
	SessionID string
	DeviceID  string
	Operator  string
}

// IngestionService validates and persists readings, triggers broadcast and drives
// the session lifecycle.
type IngestionService struct {
	readings    ReadingStore
	sessions    SessionStore
	broadcaster Broadcaster
	openCache   OpenSessionCache
	logger      *zap.Logger
	now         func() time.Time
}

// NewIngestionService builds the service. openCache may be nil.
func NewIngestionService(
	readings ReadingStore,
	sessions SessionStore,
	broadcaster Broadcaster,
	openCache OpenSessionCache,
	logger *zap.Logger,
) *IngestionService {
	return &IngestionService{
		readings:    readings,
		sessions:    sessions,
		broadcaster: broadcaster,
		openCache:   openCache,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock.
func (s *IngestionService) WithClock(now func() time.Time) *IngestionService {
	s.now = now
	return s
}

// SubmitReading persists a reading and, only after the write succeeded, publishes it.
func (s *IngestionService) SubmitReading(ctx context.Context, input ReadingInput) (*models.Reading, error) {
	deviceID := strings.TrimSpace(input.DeviceID)
	if deviceID == "" || input.Voltage == nil {
		return nil, validationError("missing required fields: deviceId and voltage")
	}
	for _, v := range []*float64{input.Voltage, input.MinVoltage, input.MaxVoltage, input.AvgVoltage} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return nil, validationError("voltage values must be finite numbers")
		}
	}

	now := s.now()
	ts := now
	if input.Timestamp != nil && !input.Timestamp.IsZero() {
		ts = input.Timestamp.UTC()
	}

	reading := &models.Reading{
		DeviceID:   deviceID,
		Voltage:    *input.Voltage,
		MinVoltage: input.MinVoltage,
		MaxVoltage: input.MaxVoltage,
		AvgVoltage: input.AvgVoltage,
		Timestamp:  ts,
		CreatedAt:  now,
	}
	if err := s.readings.Insert(ctx, reading); err != nil {
		s.logger.Error("failed to store reading", zap.String("device_id", deviceID), zap.Error(err))
		return nil, storageError("insert reading", err)
	}

	s.broadcaster.Broadcast(models.NewVoltageUpdate(*reading))
	s.logger.Debug("reading accepted",
		zap.Int64("id", reading.ID),
		zap.String("device_id", deviceID),
		zap.Float64("voltage", reading.Voltage),
	)
	return reading, nil
}

// StartSession creates an open session bound to a device.
func (s *IngestionService) StartSession(ctx context.Context, input StartSessionInput) (*models.Session, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	deviceID := strings.TrimSpace(input.DeviceID)
	if sessionID == "" || deviceID == "" {
		return nil, validationError("missing required fields: sessionId and deviceId")
	}
	operator := strings.TrimSpace(input.Operator)
	if operator == "" {
		operator = models.DefaultOperator
	}

	session := &models.Session{
		SessionID: sessionID,
		DeviceID:  deviceID,
		StartTime: s.now(),
		Operator:  operator,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicateSession) {
			return nil, ErrDuplicateSession
		}
		s.logger.Error("failed to start session", zap.String("session_id", sessionID), zap.Error(err))
		return nil, storageError("create session", err)
	}

	if s.openCache != nil {
		cacheErr := s.openCache.Save(ctx, redisstore.OpenSession{
			SessionID: session.SessionID,
			DeviceID:  session.DeviceID,
			Operator:  session.Operator,
			StartTime: session.StartTime,
		})
		if cacheErr != nil {
			s.logger.Warn("failed to cache open session", zap.String("session_id", sessionID), zap.Error(cacheErr))
		}
	}

	s.logger.Info("welding session started",
		zap.String("session_id", sessionID),
		zap.String("device_id", deviceID),
		zap.String("operator", operator),
	)
	return session, nil
}

// EndSession closes an open session and back-fills its statistics from the readings
// recorded between its start and this call.
func (s *IngestionService) EndSession(ctx context.Context, sessionID string) (*models.Session, models.VoltageStats, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, models.VoltageStats{}, validationError("missing required field: sessionId")
	}

	closedAt := s.now()
	session, result, err := s.sessions.Close(ctx, sessionID, closedAt, func(open models.Session) models.ReadingFilter {
		return stats.SessionFilter(open, closedAt)
	})
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return nil, models.VoltageStats{}, ErrSessionNotFound
	case errors.Is(err, repository.ErrSessionClosed):
		return nil, models.VoltageStats{}, ErrSessionAlreadyClosed
	case err != nil:
		s.logger.Error("failed to end session", zap.String("session_id", sessionID), zap.Error(err))
		return nil, models.VoltageStats{}, storageError("close session", err)
	}

	if s.openCache != nil {
		if err := s.openCache.Delete(ctx, session.DeviceID, session.SessionID); err != nil {
			s.logger.Warn("failed to evict open session cache", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	s.logger.Info("welding session ended",
		zap.String("session_id", sessionID),
		zap.String("device_id", session.DeviceID),
		zap.Int64("readings", result.Count),
	)
	return session, result, nil
}
