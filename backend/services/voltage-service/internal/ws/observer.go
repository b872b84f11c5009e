package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State is the lifecycle stage of an observer connection.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const maxObserverMessage = 4096

// Observer is one connected real-time consumer. Messages are written in the order
// they were enqueued.
type Observer struct {
	id           uint64
	conn         *websocket.Conn
	send         chan []byte
	ping         chan struct{}
	done         chan struct{}
	state        atomic.Int32
	closeOnce    sync.Once
	logger       *zap.Logger
	writeTimeout time.Duration
	pongWait     time.Duration
	onClose      func(id uint64)
}

// NewObserver wraps an upgraded connection. The observer starts in StateConnecting
// and accepts messages only once opened.
func NewObserver(id uint64, conn *websocket.Conn, buffer int, writeTimeout, pingInterval time.Duration, logger *zap.Logger, onClose func(uint64)) *Observer {
	if buffer <= 0 {
		buffer = 64
	}
	return &Observer{
		id:           id,
		conn:         conn,
		send:         make(chan []byte, buffer),
		ping:         make(chan struct{}, 1),
		done:         make(chan struct{}),
		logger:       logger.With(zap.Uint64("observer_id", id)),
		writeTimeout: writeTimeout,
		pongWait:     2 * pingInterval,
		onClose:      onClose,
	}
}

// ID returns the registry key of the observer.
func (o *Observer) ID() uint64 {
	return o.id
}

// State reports the current lifecycle stage.
func (o *Observer) State() State {
	return State(o.state.Load())
}

func (o *Observer) open() bool {
	return o.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

// Start launches the write pump and blocks in the read pump until the connection ends.
func (o *Observer) Start() {
	go o.writePump()
	o.readPump()
}

// Send enqueues msg without blocking. It reports false when the observer is not
// open or its buffer is full, in which case the message is dropped.
func (o *Observer) Send(msg []byte) bool {
	if o.State() != StateOpen {
		return false
	}
	select {
	case <-o.done:
		return false
	case o.send <- msg:
		return true
	default:
		o.logger.Warn("dropping voltage update, observer buffer full")
		return false
	}
}

// RequestPing asks the write pump to send a keepalive ping.
func (o *Observer) RequestPing() {
	select {
	case o.ping <- struct{}{}:
	default:
	}
}

// Close moves the observer to StateClosed and releases the connection. It is safe
// to call more than once.
func (o *Observer) Close() {
	o.closeOnce.Do(func() {
		o.state.Store(int32(StateClosed))
		close(o.done)
		_ = o.conn.Close()
		if o.onClose != nil {
			o.onClose(o.id)
		}
	})
}

// readPump discards inbound frames; it exists to process control frames and to
// notice when the peer goes away.
func (o *Observer) readPump() {
	defer o.Close()
	o.conn.SetReadLimit(maxObserverMessage)
	_ = o.conn.SetReadDeadline(time.Now().Add(o.pongWait))
	o.conn.SetPongHandler(func(string) error {
		return o.conn.SetReadDeadline(time.Now().Add(o.pongWait))
	})

	for {
		if _, _, err := o.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				o.logger.Info("observer read closed", zap.Error(err))
			}
			return
		}
	}
}

func (o *Observer) writePump() {
	defer o.Close()
	for {
		select {
		case <-o.done:
			_ = o.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-o.send:
			if err := o.write(websocket.TextMessage, msg); err != nil {
				o.logger.Info("observer write failed", zap.Error(err))
				return
			}
		case <-o.ping:
			if err := o.write(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

func (o *Observer) write(messageType int, data []byte) error {
	_ = o.conn.SetWriteDeadline(time.Now().Add(o.writeTimeout))
	return o.conn.WriteMessage(messageType, data)
}
