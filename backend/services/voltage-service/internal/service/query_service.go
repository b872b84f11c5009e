package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"voltwatch/backend/services/voltage-service/internal/models"
	redisstore "voltwatch/backend/services/voltage-service/internal/redis"
	"voltwatch/backend/services/voltage-service/internal/repository"
	"voltwatch/backend/services/voltage-service/internal/stats"
)

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// HistoryPage is one page of reading history.
type HistoryPage struct {
	Data       []models.Reading `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// QueryService serves read-only views over the stores and the statistics engine.
type QueryService struct {
	readings  ReadingStore
	sessions  SessionStore
	engine    StatsEngine
	openCache OpenSessionCache
	logger    *zap.Logger
}

// NewQueryService builds the service. openCache may be nil.
func NewQueryService(readings ReadingStore, sessions SessionStore, engine StatsEngine, openCache OpenSessionCache, logger *zap.Logger) *QueryService {
	return &QueryService{
		readings:  readings,
		sessions:  sessions,
		engine:    engine,
		openCache: openCache,
		logger:    logger,
	}
}

// Latest returns the newest readings, optionally for one device and after since.
func (s *QueryService) Latest(ctx context.Context, deviceID string, since time.Time, limit int) ([]models.Reading, error) {
	filter := models.ReadingFilter{DeviceID: strings.TrimSpace(deviceID), Since: since}
	readings, err := s.readings.Query(ctx, filter, limit, 0)
	if err != nil {
		return nil, storageError("query readings", err)
	}
	return readings, nil
}

// History returns a page of readings newest first with totals.
func (s *QueryService) History(ctx context.Context, deviceID string, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	filter := models.ReadingFilter{DeviceID: strings.TrimSpace(deviceID)}

	readings, err := s.readings.Query(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, storageError("query readings", err)
	}
	total, err := s.readings.Count(ctx, filter)
	if err != nil {
		return nil, storageError("count readings", err)
	}

	return &HistoryPage{
		Data: readings,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + int64(limit) - 1) / int64(limit),
		},
	}, nil
}

// Stats returns windowed statistics for deviceID, or across devices when empty.
func (s *QueryService) Stats(ctx context.Context, deviceID string, window stats.Window) (stats.WindowedStats, error) {
	result, err := s.engine.Windowed(ctx, strings.TrimSpace(deviceID), window)
	if err != nil {
		return stats.WindowedStats{}, storageError("aggregate readings", err)
	}
	return result, nil
}

// Sessions lists sessions newest first.
func (s *QueryService) Sessions(ctx context.Context, page, limit int) ([]models.Session, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	sessions, err := s.sessions.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, storageError("list sessions", err)
	}
	return sessions, nil
}

// Session returns one session by id.
func (s *QueryService) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, validationError("missing required field: sessionId")
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, storageError("get session", err)
	}
	return session, nil
}

// ActiveSession returns the open session of a device. The cache is consulted first
// and a hit is confirmed against the Session Store; a miss or a stale entry is
// answered by the store and the cache is refilled.
func (s *QueryService) ActiveSession(ctx context.Context, deviceID string) (*redisstore.OpenSession, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, validationError("missing required field: deviceId")
	}

	if s.openCache != nil {
		cached, err := s.openCache.Get(ctx, deviceID)
		switch {
		case err == nil:
			open, err := s.confirmCached(ctx, cached)
			if err != nil {
				return nil, err
			}
			if open {
				return cached, nil
			}
		case !errors.Is(err, redisstore.ErrCacheMiss):
			s.logger.Warn("open session cache lookup failed", zap.String("device_id", deviceID), zap.Error(err))
		}
	}

	session, err := s.sessions.FindOpenByDevice(ctx, deviceID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrOpenSessionNotFound
	}
	if err != nil {
		return nil, storageError("find open session", err)
	}

	open := &redisstore.OpenSession{
		SessionID: session.SessionID,
		DeviceID:  session.DeviceID,
		Operator:  session.Operator,
		StartTime: session.StartTime,
	}
	if s.openCache != nil {
		if err := s.openCache.Save(ctx, *open); err != nil {
			s.logger.Warn("failed to refill open session cache", zap.String("device_id", deviceID), zap.Error(err))
		}
	}
	return open, nil
}

// confirmCached reports whether the cached session is still open in the store.
// A closed or unknown session is evicted so the next lookup goes to the store.
func (s *QueryService) confirmCached(ctx context.Context, cached *redisstore.OpenSession) (bool, error) {
	session, err := s.sessions.Get(ctx, cached.SessionID)
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
	case err != nil:
		return false, storageError("get session", err)
	case session.Open() && session.DeviceID == cached.DeviceID:
		return true, nil
	}

	if err := s.openCache.Delete(ctx, cached.DeviceID, cached.SessionID); err != nil {
		s.logger.Warn("failed to evict stale open session", zap.String("session_id", cached.SessionID), zap.Error(err))
	}
	return false, nil
}
