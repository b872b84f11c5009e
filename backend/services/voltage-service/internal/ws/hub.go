package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"voltwatch/backend/services/voltage-service/internal/models"
)

// Hub is the registry of connected observers and fans voltage updates out to them.
type Hub struct {
	mu           sync.RWMutex
	observers    map[uint64]*Observer
	publishMu    sync.Mutex
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewHub builds an empty hub.
func NewHub(pingInterval time.Duration, logger *zap.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		observers:    make(map[uint64]*Observer),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Add registers an observer and opens it for delivery.
func (h *Hub) Add(o *Observer) {
	h.mu.Lock()
	h.observers[o.ID()] = o
	h.mu.Unlock()
	o.open()
}

// Remove drops an observer from the registry.
func (h *Hub) Remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.observers, id)
}

// Count returns the number of registered observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// Broadcast delivers event to every open observer. It never blocks on a slow
// observer: a full buffer drops the event for that observer only.
func (h *Hub) Broadcast(event models.VoltageUpdate) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode voltage update", zap.Int64("id", event.ID), zap.Error(err))
		return
	}

	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, o := range h.observers {
		o.Send(payload)
	}
}

// Start runs the keepalive loop until ctx is done, then closes every observer.
func (h *Hub) Start(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.CloseAll()
			return
		case <-ticker.C:
			h.mu.RLock()
			for _, o := range h.observers {
				o.RequestPing()
			}
			h.mu.RUnlock()
		}
	}
}

// CloseAll closes and unregisters every observer.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	observers := make([]*Observer, 0, len(h.observers))
	for _, o := range h.observers {
		observers = append(observers, o)
	}
	h.mu.RUnlock()

	for _, o := range observers {
		o.Close()
	}
}
