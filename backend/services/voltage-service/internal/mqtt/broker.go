package mqtt

import (
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/listeners"
	"go.uber.org/zap"
)

// Broker is the embedded MQTT listener devices publish readings to.
type Broker struct {
	server *mochi.Server
	logger *zap.Logger
}

// NewBroker builds a broker on address with hook installed.
func NewBroker(address string, hook *IngestHook, logger *zap.Logger) (*Broker, error) {
	server := mochi.New(nil)
	if err := server.AddHook(hook, nil); err != nil {
		return nil, err
	}
	tcp := listeners.NewTCP(listeners.Config{
		ID:      "devices",
		Address: address,
	})
	if err := server.AddListener(tcp); err != nil {
		return nil, err
	}
	return &Broker{server: server, logger: logger}, nil
}

// Serve starts the listeners. It returns once they are accepting connections.
func (b *Broker) Serve() error {
	b.logger.Info("mqtt broker listening")
	return b.server.Serve()
}

// Close stops the listeners and disconnects every client.
func (b *Broker) Close() error {
	return b.server.Close()
}
