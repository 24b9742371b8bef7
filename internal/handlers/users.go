package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shareyt/backend/internal/logging"
	"github.com/shareyt/backend/internal/models"
)

// UserHandler exposes profile lookup endpoints.
type UserHandler struct {
	Social    SocialService
	Directory ProfileDirectory
}

// Search handles GET /api/v1/users/search?email= requests. An unknown
// email is not an error; the response carries a null user so clients can
// show "no user found" without special-casing a 404.
func (h UserHandler) Search(w http.ResponseWriter, r *http.Request, uid string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	profile, err := h.Social.SearchUserByEmail(ctx, uid, r.URL.Query().Get("email"))
	if err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, searchResponse{User: profile})
}

// Profile handles GET /api/v1/users/profile?uid= requests, resolving a
// single uid the caller is connected to.
func (h UserHandler) Profile(w http.ResponseWriter, r *http.Request, uid string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	profile, err := h.Directory.Resolve(ctx, uid, r.URL.Query().Get("uid"))
	if err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, searchResponse{User: &profile})
}

// Batch handles POST /api/v1/users/batch requests, resolving up to 100
// uids to profiles in one round trip.
func (h UserHandler) Batch(w http.ResponseWriter, r *http.Request, uid string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid batch payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.Directory.BatchResolve(ctx, uid, req.UIDs)
	if err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, result)
}

type searchResponse struct {
	User *models.Profile `json:"user"`
}

type batchRequest struct {
	UIDs []string `json:"uids"`
}
