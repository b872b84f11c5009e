package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"voltwatch/backend/services/voltage-service/internal/auth"
	"voltwatch/backend/services/voltage-service/internal/service"
	"voltwatch/backend/services/voltage-service/internal/stats"
)

// APIKeyHeader carries the device credential.
const APIKeyHeader = "X-API-Key"

const (
	defaultLatestLimit  = 10
	defaultHistoryLimit = 50
	maxPageLimit        = 1000
)

// VoltageHandlers serves reading ingestion and reading queries.
type VoltageHandlers struct {
	ingest *service.IngestionService
	query  *service.QueryService
	auth   *auth.Authenticator
	logger *zap.Logger
}

// NewVoltageHandlers builds handlers.
func NewVoltageHandlers(ingest *service.IngestionService, query *service.QueryService, authenticator *auth.Authenticator, logger *zap.Logger) *VoltageHandlers {
	return &VoltageHandlers{ingest: ingest, query: query, auth: authenticator, logger: logger}
}

type ingestResponse struct {
	Success   bool      `json:"success"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"deviceId"`
	Message   string    `json:"message"`
}

// Ingest handles POST /api/voltage.
func (h *VoltageHandlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var payload service.ReadingPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	payload.DeviceID = strings.TrimSpace(payload.DeviceID)
	credential := strings.TrimSpace(r.Header.Get(APIKeyHeader))
	if credential == "" {
		credential = payload.APIKey
	}
	switch decision := h.auth.Authenticate(credential, payload.DeviceID); decision {
	case auth.Authorized:
	case auth.DeviceNotAllowed:
		h.logger.Warn("device not allowed", zap.String("device_id", payload.DeviceID))
		writeError(w, http.StatusForbidden, "device not allowed")
		return
	default:
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	input, err := payload.Input()
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	reading, err := h.ingest.SubmitReading(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Success:   true,
		ID:        reading.ID,
		Timestamp: reading.Timestamp,
		DeviceID:  reading.DeviceID,
		Message:   "Voltage data received successfully",
	})
}

// Latest handles GET /api/voltage/latest.
func (h *VoltageHandlers) Latest(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		ts, err := service.ParseTimestamp(raw)
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		since = ts
	}

	limit := queryInt(r, "limit", defaultLatestLimit, maxPageLimit)
	readings, err := h.query.Latest(r.Context(), r.URL.Query().Get("deviceId"), since, limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// History handles GET /api/voltage/history.
func (h *VoltageHandlers) History(w http.ResponseWriter, r *http.Request) {
	page, err := h.query.History(
		r.Context(),
		r.URL.Query().Get("deviceId"),
		queryInt(r, "page", 1, 0),
		queryInt(r, "limit", defaultHistoryLimit, maxPageLimit),
	)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Stats handles GET /api/voltage/stats.
func (h *VoltageHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	window := stats.ParseWindow(r.URL.Query().Get("range"), stats.DefaultWindow)
	h.writeStats(w, r, r.URL.Query().Get("deviceId"), window)
}

// DeviceStats handles GET /api/voltage/devices/{deviceId}/stats.
func (h *VoltageHandlers) DeviceStats(w http.ResponseWriter, r *http.Request) {
	deviceID := strings.TrimSpace(r.PathValue("deviceId"))
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "deviceId is required")
		return
	}
	window := stats.ParseWindow(r.URL.Query().Get("range"), stats.DefaultDeviceWindow)
	h.writeStats(w, r, deviceID, window)
}

func (h *VoltageHandlers) writeStats(w http.ResponseWriter, r *http.Request, deviceID string, window stats.Window) {
	result, err := h.query.Stats(r.Context(), deviceID, window)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
