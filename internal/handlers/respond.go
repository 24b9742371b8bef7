package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shareyt/backend/internal/logging"
	"github.com/shareyt/backend/internal/social"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// respondServiceError translates a service error into an HTTP response.
// Typed errors map to their status and surface their message; anything
// else becomes an opaque 500.
func respondServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var svcErr *social.Error
	if errors.As(err, &svcErr) {
		respondJSON(ctx, w, statusForKind(svcErr.Kind), map[string]string{"error": svcErr.Message})
		return
	}

	logging.FromContext(ctx).Error("unhandled service error", "error", err)
	respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func statusForKind(kind social.Kind) int {
	switch kind {
	case social.KindUnauthenticated:
		return http.StatusUnauthorized
	case social.KindInvalidArgument:
		return http.StatusBadRequest
	case social.KindNotFound:
		return http.StatusNotFound
	case social.KindAlreadyExists:
		return http.StatusConflict
	case social.KindPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
