package handlers

import (
	"net/http"
	"strings"

	"github.com/shareyt/backend/internal/logging"
)

// authedHandler receives the uid resolved from the bearer token.
type authedHandler func(w http.ResponseWriter, r *http.Request, uid string)

// requireAuth resolves the Authorization bearer token to a uid before
// invoking the wrapped handler. Requests without a valid access token get
// a 401 and never reach the handler.
func requireAuth(sessions SessionManager, next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := bearerToken(r)
		if token == "" {
			respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "missing access token"})
			return
		}

		uid, err := sessions.Validate(ctx, token)
		if err != nil {
			logging.FromContext(ctx).Warn("access token rejected", "error", err)
			respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired access token"})
			return
		}

		next(w, r, uid)
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
