package middleware

import (
	"crypto/subtle"
	"net/http"

	json "github.com/goccy/go-json"

	"healthbridge-backend/internal/logging"
)

const APIKeyHeader = "X-API-Key"

// APIKey rejects requests whose X-API-Key header does not match key.
func APIKey(key string) func(http.Handler) http.Handler {
	expected := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if got == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing API key", r)
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				logging.Ctx(r.Context()).Warn().Str("remote_addr", r.RemoteAddr).Msg("invalid API key")
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key", r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": logging.RequestIDFromContext(r.Context()),
		},
	})
}
