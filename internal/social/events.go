package social

import "github.com/shareyt/backend/internal/models"

// EventType tags a change produced by a mutating operation.
type EventType string

const (
	// EventFriendsChanged fires when a friendship is created or removed.
	EventFriendsChanged EventType = "friends.changed"
	// EventRequestsChanged fires when a pending request is created or resolved.
	EventRequestsChanged EventType = "requests.changed"
	// EventSuggestionAdded fires when a suggestion is created or overwritten.
	EventSuggestionAdded EventType = "suggestion.added"
	// EventSuggestionUpdated fires when a suggestion's reaction or watched flag changes.
	EventSuggestionUpdated EventType = "suggestion.updated"
	// EventSuggestionRemoved fires when suggestions are deleted, including cascades.
	EventSuggestionRemoved EventType = "suggestion.removed"
)

// Event describes a committed change and the users whose mirrors it affects.
type Event struct {
	Type  EventType
	Users []string
	// Suggestion carries the created record for EventSuggestionAdded so
	// subscribers can build notifications without another read.
	Suggestion *models.VideoSuggestion
}

// Publisher fans committed change events out to subscribers. Publish must
// not block: delivery is best effort and losing an event only delays a
// mirror refresh until the next change.
type Publisher interface {
	Publish(event Event)
}
