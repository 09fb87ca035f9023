package admin

import (
	"context"
	"log/slog"
	"net/http"

	"hetu/pkg/requestcontext"
	"hetu/pkg/secrets"
)

// Context key for storing admin actor identifier.
type contextKeyAdminActorID struct{}

// ContextKeyAdminActorID is exported for use in handlers and tests.
var ContextKeyAdminActorID = contextKeyAdminActorID{}

// GetAdminActorID retrieves the admin actor identifier from the context.
// Returns empty string if not set or if this is not an admin request.
func GetAdminActorID(ctx context.Context) string {
	if actorID, ok := ctx.Value(ContextKeyAdminActorID).(string); ok {
		return actorID
	}
	return ""
}

// RequireAdminToken guards admin endpoints. The presented X-Admin-Token header
// is verified against a bcrypt hash so the plaintext token never has to live
// in configuration. An empty hash disables admin endpoints entirely.
func RequireAdminToken(expectedHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			if expectedHash == "" {
				logger.WarnContext(ctx, "admin endpoint hit without admin token configured",
					"request_id", requestID,
				)
				writeUnauthorized(w)
				return
			}

			token := r.Header.Get("X-Admin-Token")
			if token == "" || secrets.Verify(token, expectedHash) != nil {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestID,
				)
				writeUnauthorized(w)
				return
			}

			// Capture admin actor identifier for audit attribution.
			// This header identifies which admin performed the action.
			if actorID := r.Header.Get("X-Admin-Actor-ID"); actorID != "" {
				ctx = context.WithValue(ctx, ContextKeyAdminActorID, actorID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
}
