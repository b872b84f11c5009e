package httpserver

import (
	"net/http"

	"go.uber.org/zap"

	"voltwatch/backend/services/voltage-service/internal/http/handlers"
	"voltwatch/backend/services/voltage-service/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	VoltageHandlers *handlers.VoltageHandlers
	WeldingHandlers *handlers.WeldingHandlers
	HealthHandler   http.HandlerFunc
	WebSocket       http.HandlerFunc
	// ViewerAuth guards dashboard facing routes; nil leaves them open.
	ViewerAuth func(http.Handler) http.Handler
	Logger     *zap.Logger
}

// NewRouter wires HTTP routes with middleware.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	viewer := func(handler http.HandlerFunc) http.Handler {
		if deps.ViewerAuth == nil {
			return handler
		}
		return middleware.Chain(handler, deps.ViewerAuth)
	}

	mux.Handle("/api/health", method(http.MethodGet, deps.HealthHandler))

	// Devices authenticate with the shared key inside the handler.
	mux.Handle("/api/voltage", method(http.MethodPost, http.HandlerFunc(deps.VoltageHandlers.Ingest)))

	mux.Handle("/api/voltage/latest", method(http.MethodGet, viewer(deps.VoltageHandlers.Latest)))
	mux.Handle("/api/voltage/history", method(http.MethodGet, viewer(deps.VoltageHandlers.History)))
	mux.Handle("/api/voltage/stats", method(http.MethodGet, viewer(deps.VoltageHandlers.Stats)))
	mux.Handle("/api/voltage/devices/{deviceId}/stats", method(http.MethodGet, viewer(deps.VoltageHandlers.DeviceStats)))

	mux.Handle("/api/welding/start", method(http.MethodPost, viewer(deps.WeldingHandlers.Start)))
	mux.Handle("/api/welding/end", method(http.MethodPost, viewer(deps.WeldingHandlers.End)))
	mux.Handle("/api/welding/sessions", method(http.MethodGet, viewer(deps.WeldingHandlers.Sessions)))
	mux.Handle("/api/welding/sessions/{sessionId}", method(http.MethodGet, viewer(deps.WeldingHandlers.Session)))
	mux.Handle("/api/welding/active", method(http.MethodGet, viewer(deps.WeldingHandlers.Active)))

	if deps.WebSocket != nil {
		mux.Handle("/ws", method(http.MethodGet, viewer(deps.WebSocket)))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})

	return middleware.Chain(mux,
		middleware.LoggingMiddleware(deps.Logger),
		middleware.RecoveryMiddleware(deps.Logger),
		middleware.SecurityHeaders,
	)
}

func method(expected string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
