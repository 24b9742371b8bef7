package handlers

import (
	"context"
	"net/http"

	"github.com/shareyt/backend/internal/directory"
	"github.com/shareyt/backend/internal/models"
	"github.com/shareyt/backend/internal/relay"
	"github.com/shareyt/backend/internal/repositories"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}

// SessionManager issues, validates, and refreshes authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Validate(ctx context.Context, accessToken string) (string, error)
	Revoke(ctx context.Context, token string)
}

// SocialService captures the relationship and suggestion operations the
// HTTP layer exposes.
type SocialService interface {
	SearchUserByEmail(ctx context.Context, selfUID, email string) (*models.Profile, error)
	SendFriendRequest(ctx context.Context, selfUID, toUID string) error
	AcceptFriendRequest(ctx context.Context, selfUID, fromUID string) (string, error)
	RejectFriendRequest(ctx context.Context, selfUID, fromUID string) error
	RemoveFriend(ctx context.Context, selfUID, friendUID string) error
	SuggestVideo(ctx context.Context, selfUID string, toUIDs []string, videoID, thumbnailURL, title string, reaction *string) error
	DeleteSuggestion(ctx context.Context, selfUID, suggestionID string) error
	UpdateReaction(ctx context.Context, selfUID, suggestionID string, reaction *string) error
	MarkWatched(ctx context.Context, selfUID, suggestionID string, watched bool) error
	Friends(ctx context.Context, uid string) ([]models.Friend, error)
	Requests(ctx context.Context, uid string) (repositories.RequestSnapshot, error)
}

// ProfileDirectory resolves uids to the profiles a caller may view.
type ProfileDirectory interface {
	Resolve(ctx context.Context, selfUID, uid string) (models.Profile, error)
	BatchResolve(ctx context.Context, selfUID string, uids []string) (directory.BatchResult, error)
}

// SessionRelay manages sign-in state for the sync layer.
type SessionRelay interface {
	SignIn(ctx context.Context, user models.Profile)
	SignOut(uid string)
	Snapshot(uid string) (relay.Snapshot, bool)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users       UserStore
	Sessions    SessionManager
	Social      SocialService
	Directory   ProfileDirectory
	Relay       SessionRelay
	Sync        http.Handler
	AuthLimiter RateLimiter
}
