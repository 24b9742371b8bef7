package repositories

import (
	"context"

	"github.com/shareyt/backend/internal/models"
)

// RequestSnapshot groups the pending requests touching a single user.
type RequestSnapshot struct {
	Sent     []models.FriendRequest
	Received []models.FriendRequest
}

// RelationshipRepository defines data access for friend requests and
// friendships. Mutations are transactional: both sides of a pair are
// updated atomically or not at all.
type RelationshipRepository interface {
	// CreateRequest records a pending request from fromUID to toUID with a
	// server-side timestamp. Re-sending the same request refreshes the
	// timestamp. Returns ErrConflict when the reverse request is pending.
	CreateRequest(ctx context.Context, fromUID, toUID string) error

	// AcceptRequest deletes the pending request from fromUID to selfUID and
	// creates the friendship pair in one transaction. Returns ErrNotFound
	// when no such request is pending.
	AcceptRequest(ctx context.Context, selfUID, fromUID string) error

	// DeleteRequest removes the pending request from fromUID to selfUID.
	// Removing an absent request is not an error.
	DeleteRequest(ctx context.Context, selfUID, fromUID string) error

	// DeleteFriendship removes the friendship between the two users.
	// Reports whether a friendship actually existed; an absent friendship
	// is not an error.
	DeleteFriendship(ctx context.Context, selfUID, friendUID string) (bool, error)

	ListFriends(ctx context.Context, uid string) ([]models.Friend, error)
	ListRequests(ctx context.Context, uid string) (RequestSnapshot, error)
	AreFriends(ctx context.Context, a, b string) (bool, error)

	// ConnectedUIDs returns every uid connected to the user through a
	// friendship or a pending request in either direction.
	ConnectedUIDs(ctx context.Context, uid string) (map[string]struct{}, error)
}
