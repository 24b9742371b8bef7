package relay

import (
	"sync"

	"github.com/shareyt/backend/internal/models"
)

// Mirror sections pushed to presentation surfaces.
const (
	SectionUser      = "user"
	SectionFriends   = "friendsList"
	SectionRequests  = "friendRequests"
	SectionSuggested = "suggestedVideos"
	SectionSent      = "sentVideos"
)

// FriendEntry is one friend with their resolved public profile, the
// single uid→profile projection every surface renders from.
type FriendEntry struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
	Since       string `json:"since"`
}

// RequestsView groups the pending requests around one user.
type RequestsView struct {
	Sent     []models.FriendRequest `json:"sent"`
	Received []models.FriendRequest `json:"received"`
}

// Snapshot is the full mirrored state for one signed-in user.
type Snapshot struct {
	User            models.Profile           `json:"user"`
	Friends         []FriendEntry            `json:"friendsList"`
	Requests        RequestsView             `json:"friendRequests"`
	SuggestedVideos []models.VideoSuggestion `json:"suggestedVideos"`
	SentVideos      []models.VideoSuggestion `json:"sentVideos"`
}

// Mirror holds the per-user synchronized state. The relay session is the
// only writer; surfaces read snapshots and re-render on push. Each replace
// swaps a whole section rather than patching it.
type Mirror struct {
	mu    sync.RWMutex
	state map[string]*Snapshot
}

// NewMirror constructs an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{state: make(map[string]*Snapshot)}
}

func (m *Mirror) entry(uid string) *Snapshot {
	if s, ok := m.state[uid]; ok {
		return s
	}
	s := &Snapshot{}
	m.state[uid] = s
	return s
}

// SetUser records the signed-in user's own profile.
func (m *Mirror) SetUser(uid string, profile models.Profile) {
	m.mu.Lock()
	m.entry(uid).User = profile
	m.mu.Unlock()
}

// ReplaceFriends swaps the friends section wholesale.
func (m *Mirror) ReplaceFriends(uid string, friends []FriendEntry) {
	m.mu.Lock()
	m.entry(uid).Friends = friends
	m.mu.Unlock()
}

// ReplaceRequests swaps the pending-requests section wholesale.
func (m *Mirror) ReplaceRequests(uid string, requests RequestsView) {
	m.mu.Lock()
	m.entry(uid).Requests = requests
	m.mu.Unlock()
}

// ReplaceSuggested swaps the incoming-suggestions section wholesale.
func (m *Mirror) ReplaceSuggested(uid string, videos []models.VideoSuggestion) {
	m.mu.Lock()
	m.entry(uid).SuggestedVideos = videos
	m.mu.Unlock()
}

// ReplaceSent swaps the outgoing-suggestions section wholesale.
func (m *Mirror) ReplaceSent(uid string, videos []models.VideoSuggestion) {
	m.mu.Lock()
	m.entry(uid).SentVideos = videos
	m.mu.Unlock()
}

// Snapshot returns a copy of the user's mirrored state.
func (m *Mirror) Snapshot(uid string) (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.state[uid]
	if !ok {
		return Snapshot{}, false
	}
	return *s, true
}

// FriendName resolves a friend's display label for notifications: display
// name, then email, then empty.
func (m *Mirror) FriendName(uid, friendUID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.state[uid]
	if !ok {
		return ""
	}
	for _, f := range s.Friends {
		if f.UID == friendUID {
			if f.DisplayName != "" {
				return f.DisplayName
			}
			return f.Email
		}
	}
	return ""
}

// Clear drops the user's mirrored state on sign-out.
func (m *Mirror) Clear(uid string) {
	m.mu.Lock()
	delete(m.state, uid)
	m.mu.Unlock()
}
