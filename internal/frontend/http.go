package frontend

import (
	"net/http"
	"strings"

	"github.com/mcphub/mcphub/internal/auth"
	"github.com/mcphub/mcphub/internal/common"
)

// apiKeyMiddleware gates access to the front-end HTTP handler on a valid
// API key, grounded on proxy.apiKeyMiddlewareWithHeader.
func apiKeyMiddleware(store *auth.APIKeyStore, headerName string, next http.Handler) http.Handler {
	if headerName == "" {
		headerName = "Authorization"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractAuthToken(r.Header.Get(headerName))
		if token == "" {
			writeUnauthorized(w, headerName)
			common.LogWarn("mcphub: unauthorized request: missing auth token from %s", r.RemoteAddr)
			return
		}
		if !store.Validate(token) {
			writeUnauthorized(w, headerName)
			common.LogWarn("mcphub: unauthorized request: invalid auth token from %s", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAuthToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return header
}

func writeUnauthorized(w http.ResponseWriter, headerName string) {
	if strings.EqualFold(headerName, "Authorization") {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
