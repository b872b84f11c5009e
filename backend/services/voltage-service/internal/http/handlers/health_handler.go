package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports store reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ObserverCounter reports connected observers.
type ObserverCounter interface {
	Count() int
}

// NewHealthHandler returns GET /api/health handler.
func NewHealthHandler(store Pinger, observers ObserverCounter, allowedDevices []string, startedAt time.Time) http.HandlerFunc {
	if allowedDevices == nil {
		allowedDevices = []string{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "OK", http.StatusOK
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.PingContext(ctx); err != nil {
			status, code = "DEGRADED", http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]interface{}{
			"status":         status,
			"timestamp":      time.Now().UTC(),
			"uptime":         time.Since(startedAt).Seconds(),
			"allowedDevices": allowedDevices,
			"observers":      observers.Count(),
		})
	}
}
