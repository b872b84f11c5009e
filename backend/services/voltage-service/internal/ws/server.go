package ws

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP requests to observer connections.
type Server struct {
	hub          *Hub
	logger       *zap.Logger
	nextID       atomic.Uint64
	sendBuffer   int
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds the upgrade handler for hub.
func NewServer(hub *Hub, sendBuffer int, writeTimeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		hub:          hub,
		logger:       logger,
		sendBuffer:   sendBuffer,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWS is the HTTP handler for the /ws endpoint.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id := s.nextID.Add(1)
	observer := NewObserver(id, conn, s.sendBuffer, s.writeTimeout, s.hub.pingInterval, s.logger, func(id uint64) {
		s.hub.Remove(id)
		s.logger.Info("observer disconnected", zap.Uint64("observer_id", id))
	})
	s.hub.Add(observer)

	go observer.Start()
	s.logger.Info("observer connected", zap.Uint64("observer_id", id), zap.String("remote_addr", r.RemoteAddr))
}
