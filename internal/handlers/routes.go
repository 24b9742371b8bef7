package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Relay: deps.Relay, Limiter: deps.AuthLimiter}
	users := UserHandler{Social: deps.Social, Directory: deps.Directory}
	friends := FriendHandler{Social: deps.Social}
	videos := VideoHandler{Social: deps.Social}
	sync := SyncHandler{Relay: deps.Relay}

	authed := func(next authedHandler) http.HandlerFunc {
		return requireAuth(deps.Sessions, next)
	}

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("/api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("/api/v1/auth/login", auth.Login)
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)
	mux.Handle("/api/v1/auth/logout", authed(auth.Logout))

	mux.Handle("/api/v1/users/search", authed(users.Search))
	mux.Handle("/api/v1/users/profile", authed(users.Profile))
	mux.Handle("/api/v1/users/batch", authed(users.Batch))

	mux.Handle("/api/v1/friends/request", authed(friends.Request))
	mux.Handle("/api/v1/friends/accept", authed(friends.Accept))
	mux.Handle("/api/v1/friends/reject", authed(friends.Reject))
	mux.Handle("/api/v1/friends/remove", authed(friends.Remove))

	mux.Handle("/api/v1/videos/suggest", authed(videos.Suggest))
	mux.Handle("/api/v1/videos/delete", authed(videos.Delete))
	mux.Handle("/api/v1/videos/reaction", authed(videos.Reaction))
	mux.Handle("/api/v1/videos/watched", authed(videos.Watched))

	mux.Handle("/api/v1/sync/snapshot", authed(sync.Snapshot))
	if deps.Sync != nil {
		mux.Handle("/api/v1/sync", deps.Sync)
	}
}
