package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shareyt/backend/internal/logging"
)

// VideoHandler exposes video suggestion endpoints.
type VideoHandler struct {
	Social SocialService
}

// Suggest handles POST /api/v1/videos/suggest, fanning one video out to a
// list of friends.
func (h VideoHandler) Suggest(w http.ResponseWriter, r *http.Request, uid string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid suggest payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	err := h.Social.SuggestVideo(ctx, uid, req.FriendUIDs, req.Video.VideoID, req.Video.ThumbnailURL, req.Video.Title, req.Reaction)
	if err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"success": true})
}

// Delete handles POST /api/v1/videos/delete.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request, uid string) {
	id, ok := decodeSuggestionID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.Social.DeleteSuggestion(ctx, uid, id); err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"success": true})
}

// Reaction handles POST /api/v1/videos/reaction, setting or clearing the
// sender's reaction text.
func (h VideoHandler) Reaction(w http.ResponseWriter, r *http.Request, uid string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid reaction payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.Social.UpdateReaction(ctx, uid, req.SuggestionID, req.Reaction); err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"success": true})
}

// Watched handles POST /api/v1/videos/watched, flipping the recipient's
// watched flag.
func (h VideoHandler) Watched(w http.ResponseWriter, r *http.Request, uid string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	var req watchedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid watched payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	watched := true
	if req.Watched != nil {
		watched = *req.Watched
	}

	if err := h.Social.MarkWatched(ctx, uid, req.SuggestionID, watched); err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"success": true})
}

type suggestRequest struct {
	Video      suggestVideo `json:"video"`
	FriendUIDs []string     `json:"friendUids"`
	Reaction   *string      `json:"reaction"`
}

type suggestVideo struct {
	VideoID      string `json:"videoId"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Title        string `json:"title"`
}

type reactionRequest struct {
	SuggestionID string  `json:"suggestionId"`
	Reaction     *string `json:"reaction"`
}

type watchedRequest struct {
	SuggestionID string `json:"suggestionId"`
	Watched      *bool  `json:"watched"`
}

type suggestionIDRequest struct {
	SuggestionID string `json:"suggestionId"`
}

func decodeSuggestionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return "", false
	}

	ctx := r.Context()

	var req suggestionIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid suggestion payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return "", false
	}

	return req.SuggestionID, true
}
