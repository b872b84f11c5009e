package service

import (
	"context"
	"time"

	"voltwatch/backend/services/voltage-service/internal/models"
	redisstore "voltwatch/backend/services/voltage-service/internal/redis"
	"voltwatch/backend/services/voltage-service/internal/stats"
)

// ReadingStore defines the Reading Store contract used by the services.
type ReadingStore interface {
	Insert(ctx context.Context, reading *models.Reading) error
	Query(ctx context.Context, filter models.ReadingFilter, limit, offset int) ([]models.Reading, error)
	Count(ctx context.Context, filter models.ReadingFilter) (int64, error)
}

// SessionStore defines the Session Store contract used by the services.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	List(ctx context.Context, limit, offset int) ([]models.Session, error)
	FindOpenByDevice(ctx context.Context, deviceID string) (*models.Session, error)
	Close(ctx context.Context, sessionID string, closedAt time.Time, window func(models.Session) models.ReadingFilter) (*models.Session, models.VoltageStats, error)
}

// Broadcaster fans accepted readings out to observers. Implementations must not
// block and never report delivery failures to the caller.
type Broadcaster interface {
	Broadcast(event models.VoltageUpdate)
}

// OpenSessionCache is the optional per-device open session cache.
type OpenSessionCache interface {
	Save(ctx context.Context, session redisstore.OpenSession) error
	Get(ctx context.Context, deviceID string) (*redisstore.OpenSession, error)
	Delete(ctx context.Context, deviceID, sessionID string) error
}

// StatsEngine computes windowed statistics.
type StatsEngine interface {
	Windowed(ctx context.Context, deviceID string, window stats.Window) (stats.WindowedStats, error)
}
