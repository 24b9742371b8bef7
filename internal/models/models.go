package models

import "time"

// User represents an account within the ShareYT platform.
type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	PhotoURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Profile is the public projection of a user exposed to other users.
type Profile struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// PublicProfile strips a user down to the fields other users may see.
func (u User) PublicProfile() Profile {
	return Profile{
		UID:         u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
	}
}

// FriendRequest is a pending invitation from Requester to Receiver.
// Requests are keyed by the (requester, receiver) pair; there is no
// separate request document id.
type FriendRequest struct {
	Requester string    `json:"requester"`
	Receiver  string    `json:"receiver"`
	CreatedAt time.Time `json:"createdAt"`
}

// Friendship records a confirmed connection between two users. UserA and
// UserB are stored in lexicographic order so both participants map to the
// same row regardless of who initiated.
type Friendship struct {
	UserA     string
	UserB     string
	CreatedAt time.Time
}

// Friend is one side of a friendship as seen by a particular user.
type Friend struct {
	UID   string    `json:"uid"`
	Since time.Time `json:"since"`
}

// CanonicalPair orders two uids lexicographically so both participants
// derive the same friendship key independent of direction.
func CanonicalPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// Thumbnail archive states for a video suggestion.
const (
	ThumbStatusPending = "pending"
	ThumbStatusReady   = "ready"
	ThumbStatusFailed  = "failed"
)

// VideoSuggestion is a video recommended from one user to another. The ID
// is the composite from_to_video key, guaranteeing at most one live
// suggestion per (sender, recipient, video) triple.
type VideoSuggestion struct {
	ID            string    `json:"id"`
	VideoID       string    `json:"videoId"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	ThumbnailURL  string    `json:"thumbnailUrl"`
	Title         string    `json:"title"`
	Watched       bool      `json:"watched"`
	Reaction      *string   `json:"reaction"`
	CreatedAt     time.Time `json:"timestamp"`
	ThumbStatus   string    `json:"-"`
	ThumbLocation string    `json:"-"`
}

// SuggestionID builds the composite suggestion key.
func SuggestionID(fromUID, toUID, videoID string) string {
	return fromUID + "_" + toUID + "_" + videoID
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
