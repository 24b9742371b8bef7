package handlers

import (
	"net/http"
)

// SyncHandler exposes the mirrored sync state over plain HTTP for surfaces
// that poll instead of holding a WebSocket.
type SyncHandler struct {
	Relay SessionRelay
}

// Snapshot handles GET /api/v1/sync/snapshot.
func (h SyncHandler) Snapshot(w http.ResponseWriter, r *http.Request, uid string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	snap, ok := h.Relay.Snapshot(uid)
	if !ok {
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "no active session, sign in first"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, snap)
}
