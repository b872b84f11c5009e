package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
	"go.uber.org/zap"

	"voltwatch/backend/services/voltage-service/internal/auth"
	"voltwatch/backend/services/voltage-service/internal/models"
	"voltwatch/backend/services/voltage-service/internal/service"
)

// TopicPrefix is prepended to the device id to form a device's publish topic.
const TopicPrefix = "voltage/"

const submitTimeout = 5 * time.Second

// Submitter accepts device readings.
type Submitter interface {
	SubmitReading(ctx context.Context, input service.ReadingInput) (*models.Reading, error)
}

// Authorizer decides whether a device may connect.
type Authorizer interface {
	Authenticate(credential, deviceID string) auth.Decision
}

// IngestHook authenticates devices on connect, restricts each to its own topic and
// feeds published payloads into the ingestion service.
type IngestHook struct {
	mochi.HookBase
	auth      Authorizer
	submitter Submitter
	logger    *zap.Logger
}

// NewIngestHook builds the hook.
func NewIngestHook(authorizer Authorizer, submitter Submitter, logger *zap.Logger) *IngestHook {
	return &IngestHook{auth: authorizer, submitter: submitter, logger: logger}
}

// ID identifies the hook in broker logs.
func (h *IngestHook) ID() string {
	return "voltage-ingest"
}

// Provides indicates which hook methods this hook provides.
func (h *IngestHook) Provides(b byte) bool {
	return bytes.Contains([]byte{
		mochi.OnConnectAuthenticate,
		mochi.OnACLCheck,
		mochi.OnPublish,
	}, []byte{b})
}

// OnConnectAuthenticate admits a client whose username is an allowed device id and
// whose password is the shared key.
func (h *IngestHook) OnConnectAuthenticate(cl *mochi.Client, pk packets.Packet) bool {
	deviceID := string(pk.Connect.Username)
	decision := h.auth.Authenticate(string(pk.Connect.Password), deviceID)
	if decision != auth.Authorized {
		h.logger.Warn("mqtt device rejected",
			zap.String("client_id", cl.ID),
			zap.String("device_id", deviceID),
			zap.Stringer("decision", decision),
		)
		return false
	}
	return true
}

// OnACLCheck only lets a device publish to its own topic.
func (h *IngestHook) OnACLCheck(cl *mochi.Client, topic string, write bool) bool {
	if !write {
		return false
	}
	return topic == TopicFor(string(cl.Properties.Username))
}

// OnPublish ingests the payload. Rejected packets are dropped without being
// forwarded to subscribers.
func (h *IngestHook) OnPublish(cl *mochi.Client, pk packets.Packet) (packets.Packet, error) {
	deviceID, ok := strings.CutPrefix(pk.TopicName, TopicPrefix)
	if !ok || deviceID == "" {
		return pk, packets.ErrRejectPacket
	}

	var payload service.ReadingPayload
	if err := json.Unmarshal(pk.Payload, &payload); err != nil {
		h.logger.Warn("mqtt payload is not valid JSON", zap.String("device_id", deviceID), zap.Error(err))
		return pk, packets.ErrRejectPacket
	}
	payload.DeviceID = strings.TrimSpace(payload.DeviceID)
	if payload.DeviceID == "" {
		payload.DeviceID = deviceID
	}
	if payload.DeviceID != deviceID {
		h.logger.Warn("mqtt payload device does not match topic",
			zap.String("device_id", deviceID),
			zap.String("payload_device_id", payload.DeviceID),
		)
		return pk, packets.ErrRejectPacket
	}

	input, err := payload.Input()
	if err != nil {
		h.logger.Warn("mqtt reading rejected", zap.String("device_id", deviceID), zap.Error(err))
		return pk, packets.ErrRejectPacket
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if _, err := h.submitter.SubmitReading(ctx, input); err != nil {
		if errors.Is(err, service.ErrValidation) {
			h.logger.Warn("mqtt reading rejected", zap.String("device_id", deviceID), zap.Error(err))
		} else {
			h.logger.Error("mqtt reading not stored", zap.String("device_id", deviceID), zap.Error(err))
		}
		return pk, packets.ErrRejectPacket
	}
	return pk, nil
}

// TopicFor returns the publish topic of deviceID.
func TopicFor(deviceID string) string {
	return TopicPrefix + deviceID
}
