package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shareyt/backend/internal/logging"
)

// FriendHandler exposes friend request and friendship endpoints.
type FriendHandler struct {
	Social SocialService
}

// Request handles POST /api/v1/friends/request.
func (h FriendHandler) Request(w http.ResponseWriter, r *http.Request, uid string) {
	target, ok := decodeTarget(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.Social.SendFriendRequest(ctx, uid, target); err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"success": true})
}

// Accept handles POST /api/v1/friends/accept. The response echoes the new
// friend's uid so clients can update their friend list without a refetch.
func (h FriendHandler) Accept(w http.ResponseWriter, r *http.Request, uid string) {
	target, ok := decodeTarget(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	friendID, err := h.Social.AcceptFriendRequest(ctx, uid, target)
	if err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, acceptResponse{Success: true, FriendID: friendID})
}

// Reject handles POST /api/v1/friends/reject.
func (h FriendHandler) Reject(w http.ResponseWriter, r *http.Request, uid string) {
	target, ok := decodeTarget(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.Social.RejectFriendRequest(ctx, uid, target); err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"success": true})
}

// Remove handles POST /api/v1/friends/remove.
func (h FriendHandler) Remove(w http.ResponseWriter, r *http.Request, uid string) {
	target, ok := decodeTarget(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.Social.RemoveFriend(ctx, uid, target); err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"success": true})
}

type targetRequest struct {
	UID string `json:"uid"`
}

type acceptResponse struct {
	Success  bool   `json:"success"`
	FriendID string `json:"friendId"`
}

// decodeTarget parses the common {uid} body shared by the friend
// endpoints. It writes the error response itself when parsing fails.
func decodeTarget(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return "", false
	}

	ctx := r.Context()

	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid friend payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return "", false
	}

	return req.UID, true
}
