package middleware

import (
	"context"
	"net/http"
	"strings"

	"voltwatch/backend/services/voltage-service/internal/auth"
)

type contextKey string

const viewerKey contextKey = "viewer"

// ViewerAuth requires a viewer token from the Authorization header or, for browser
// WebSocket clients that cannot set headers, the token query parameter. A nil
// tokens value disables the check.
func ViewerAuth(tokens *auth.ViewerTokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tokens == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				tokenStr = r.URL.Query().Get("token")
			}
			if tokenStr == "" {
				writeUnauthorized(w, "missing viewer token")
				return
			}
			claims, err := tokens.Validate(tokenStr)
			if err != nil {
				writeUnauthorized(w, "invalid viewer token")
				return
			}
			ctx := context.WithValue(r.Context(), viewerKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}

// ViewerFromContext returns the subject of the validated viewer token.
func ViewerFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(viewerKey).(string)
	return subject, ok
}
