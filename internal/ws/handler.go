package ws

import (
	"context"
	"net/http"

	"nhooyr.io/websocket"

	"github.com/shareyt/backend/internal/relay"
)

// TokenValidator resolves an access token to a uid.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// SnapshotSource provides the current mirrored state for late joiners.
type SnapshotSource interface {
	Snapshot(uid string) (relay.Snapshot, bool)
}

// ServeWS returns an HTTP handler that upgrades to WebSocket.
// Auth is done via ?token=xxx query param (WebSocket can't send headers).
// A freshly connected client immediately receives the full snapshot so it
// never renders from stale local state.
func ServeWS(hub *Hub, tokens TokenValidator, snapshots SnapshotSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		uid, err := tokens.Validate(r.Context(), tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			hub.logger.Warn("ws accept", "error", err)
			return
		}

		client := NewClient(hub, conn, uid)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()

		if snapshots != nil {
			if snap, ok := snapshots.Snapshot(uid); ok {
				if evt, err := NewEvent(EventTypeSnapshot, snap); err == nil {
					hub.SendToUser(uid, evt)
				}
			}
		}
	}
}
