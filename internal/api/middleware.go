package api

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"airgate/internal/models"
)

// apiKeyHeader is the header inbound clients authenticate with.
const apiKeyHeader = "X-API-Key"

// authMiddleware enforces the configured API key on every request. The
// comparison is constant time so the key cannot be probed byte by byte.
func authMiddleware(security models.SecurityConfig) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(apiKeyHeader)
			if provided == "" {
				writeAuthError(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, "API key required")
				return
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(security.APIKey)) != 1 {
				slog.Warn("Rejected request with invalid API key",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr)
				writeAuthError(w, http.StatusForbidden, models.ErrorCodeForbidden, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(models.NewErrorResponse(message, errorCode))
}
