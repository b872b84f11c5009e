package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"voltwatch/backend/services/voltage-service/internal/models"
	"voltwatch/backend/services/voltage-service/internal/service"
)

const defaultSessionsLimit = 20

// WeldingHandlers serves the welding session lifecycle.
type WeldingHandlers struct {
	ingest *service.IngestionService
	query  *service.QueryService
	logger *zap.Logger
}

// NewWeldingHandlers builds handlers.
func NewWeldingHandlers(ingest *service.IngestionService, query *service.QueryService, logger *zap.Logger) *WeldingHandlers {
	return &WeldingHandlers{ingest: ingest, query: query, logger: logger}
}

type startRequest struct {
	SessionID string `json:"sessionId"`
	DeviceID  string `json:"deviceId"`
	Operator  string `json:"operator"`
}

type endRequest struct {
	SessionID string `json:"sessionId"`
}

type endResponse struct {
	Success   bool                `json:"success"`
	SessionID string              `json:"sessionId"`
	Stats     models.VoltageStats `json:"stats"`
	Duration  *int64              `json:"duration"`
	Message   string              `json:"message"`
}

// Start handles POST /api/welding/start.
func (h *WeldingHandlers) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.ingest.StartSession(r.Context(), service.StartSessionInput{
		SessionID: req.SessionID,
		DeviceID:  req.DeviceID,
		Operator:  req.Operator,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"id":        session.ID,
		"sessionId": session.SessionID,
		"startTime": session.StartTime,
		"message":   "Welding session started",
	})
}

// End handles POST /api/welding/end.
func (h *WeldingHandlers) End(w http.ResponseWriter, r *http.Request) {
	var req endRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, result, err := h.ingest.EndSession(r.Context(), req.SessionID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, endResponse{
		Success:   true,
		SessionID: session.SessionID,
		Stats:     result,
		Duration:  session.Duration,
		Message:   "Welding session ended",
	})
}

// Sessions handles GET /api/welding/sessions.
func (h *WeldingHandlers) Sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.query.Sessions(
		r.Context(),
		queryInt(r, "page", 1, 0),
		queryInt(r, "limit", defaultSessionsLimit, maxPageLimit),
	)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Session handles GET /api/welding/sessions/{sessionId}.
func (h *WeldingHandlers) Session(w http.ResponseWriter, r *http.Request) {
	session, err := h.query.Session(r.Context(), r.PathValue("sessionId"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Active handles GET /api/welding/active?deviceId=.
func (h *WeldingHandlers) Active(w http.ResponseWriter, r *http.Request) {
	open, err := h.query.ActiveSession(r.Context(), strings.TrimSpace(r.URL.Query().Get("deviceId")))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, open)
}
