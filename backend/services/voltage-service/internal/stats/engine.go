package stats

import (
	"context"
	"time"

	"voltwatch/backend/services/voltage-service/internal/models"
)

// Aggregator computes statistics over the Reading Store.
type Aggregator interface {
	Aggregate(ctx context.Context, filter models.ReadingFilter) (models.VoltageStats, error)
}

// WindowedStats is the response record of a windowed query.
type WindowedStats struct {
	DeviceID string `json:"deviceId,omitempty"`
	Range    Window `json:"range"`
	models.VoltageStats
}

// Engine implements the aggregation rules for windows and sessions.
type Engine struct {
	store Aggregator
	now   func() time.Time
}

// NewEngine returns an Engine reading from store.
func NewEngine(store Aggregator) *Engine {
	return &Engine{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the engine clock.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Windowed aggregates readings of deviceID (all devices when empty) inside window.
func (e *Engine) Windowed(ctx context.Context, deviceID string, window Window) (WindowedStats, error) {
	filter := models.ReadingFilter{
		DeviceID: deviceID,
		Since:    window.Since(e.now()),
	}
	agg, err := e.store.Aggregate(ctx, filter)
	if err != nil {
		return WindowedStats{}, err
	}
	return WindowedStats{DeviceID: deviceID, Range: window, VoltageStats: agg}, nil
}

// SessionFilter selects the readings that belong to session when it is closed at
// closedAt: same device, from start time up to the close call.
func SessionFilter(session models.Session, closedAt time.Time) models.ReadingFilter {
	return models.ReadingFilter{
		DeviceID: session.DeviceID,
		Since:    session.StartTime,
		Until:    closedAt,
	}
}
