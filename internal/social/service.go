package social

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/shareyt/backend/internal/logging"
	"github.com/shareyt/backend/internal/models"
	"github.com/shareyt/backend/internal/repositories"
)

// MaxReactionLength caps the sender-editable reaction text.
const MaxReactionLength = 100

// ThumbnailArchiver schedules background archival of suggestion thumbnails.
type ThumbnailArchiver interface {
	Enqueue(ctx context.Context, suggestion models.VideoSuggestion) error
}

// Service implements the server-enforced social operations: friend
// requests, friendships, and video suggestions. All authorization rules
// live here; clients may pre-check for responsiveness but the service
// re-validates every call.
type Service struct {
	relationships repositories.RelationshipRepository
	suggestions   repositories.SuggestionRepository
	users         repositories.UserRepository
	events        Publisher
	archiver      ThumbnailArchiver
}

// NewService wires the social service. events and archiver may be nil, in
// which case fan-out and thumbnail archival are skipped.
func NewService(
	relationships repositories.RelationshipRepository,
	suggestions repositories.SuggestionRepository,
	users repositories.UserRepository,
	events Publisher,
	archiver ThumbnailArchiver,
) *Service {
	return &Service{
		relationships: relationships,
		suggestions:   suggestions,
		users:         users,
		events:        events,
		archiver:      archiver,
	}
}

// SearchUserByEmail resolves an email address to a public profile. A
// missing user returns (nil, nil) so clients can handle it gracefully.
func (s *Service) SearchUserByEmail(ctx context.Context, selfUID, email string) (*models.Profile, error) {
	if selfUID == "" {
		return nil, E(KindUnauthenticated, "login required")
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, E(KindInvalidArgument, "invalid email")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, E(KindInvalidArgument, "invalid email")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("search user by email: %w", err)
	}

	profile := user.PublicProfile()
	return &profile, nil
}

// SendFriendRequest records a pending request from selfUID to toUID.
func (s *Service) SendFriendRequest(ctx context.Context, selfUID, toUID string) error {
	if selfUID == "" {
		return E(KindUnauthenticated, "login required")
	}

	toUID = strings.TrimSpace(toUID)
	if toUID == "" {
		return E(KindInvalidArgument, "missing recipient uid")
	}
	if toUID == selfUID {
		return E(KindInvalidArgument, "you can't send a request to yourself")
	}

	if err := s.relationships.CreateRequest(ctx, selfUID, toUID); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return E(KindAlreadyExists, "a friend request from this user is already pending")
		}
		return fmt.Errorf("create friend request: %w", err)
	}

	s.publish(Event{Type: EventRequestsChanged, Users: []string{selfUID, toUID}})
	return nil
}

// AcceptFriendRequest converts the pending request from fromUID into a
// friendship and returns the new friend's uid.
func (s *Service) AcceptFriendRequest(ctx context.Context, selfUID, fromUID string) (string, error) {
	if selfUID == "" {
		return "", E(KindUnauthenticated, "login required")
	}

	fromUID = strings.TrimSpace(fromUID)
	if fromUID == "" || fromUID == selfUID {
		return "", E(KindInvalidArgument, "invalid request data")
	}

	if err := s.relationships.AcceptRequest(ctx, selfUID, fromUID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", E(KindNotFound, "request not found")
		}
		return "", fmt.Errorf("accept friend request: %w", err)
	}

	s.publish(Event{Type: EventRequestsChanged, Users: []string{selfUID, fromUID}})
	s.publish(Event{Type: EventFriendsChanged, Users: []string{selfUID, fromUID}})
	return fromUID, nil
}

// RejectFriendRequest removes the pending request from fromUID. Rejecting
// an already-resolved request succeeds silently: the sender may have raced
// a cancellation.
func (s *Service) RejectFriendRequest(ctx context.Context, selfUID, fromUID string) error {
	if selfUID == "" {
		return E(KindUnauthenticated, "login required")
	}

	fromUID = strings.TrimSpace(fromUID)
	if fromUID == "" || fromUID == selfUID {
		return E(KindInvalidArgument, "invalid request data, missing sender uid")
	}

	if err := s.relationships.DeleteRequest(ctx, selfUID, fromUID); err != nil {
		return fmt.Errorf("reject friend request: %w", err)
	}

	s.publish(Event{Type: EventRequestsChanged, Users: []string{selfUID, fromUID}})
	return nil
}

// RemoveFriend deletes the friendship with friendUID and cascades deletion
// of every suggestion exchanged between the pair. The cascade is best
// effort: its failure is logged and the removal still reports success.
func (s *Service) RemoveFriend(ctx context.Context, selfUID, friendUID string) error {
	if selfUID == "" {
		return E(KindUnauthenticated, "login required")
	}

	friendUID = strings.TrimSpace(friendUID)
	if friendUID == "" || friendUID == selfUID {
		return E(KindInvalidArgument, "invalid request data, missing friend uid")
	}

	ctx, span := logging.StartSpan(ctx, "social.remove_friend")
	defer span.End()
	logger := logging.FromContext(ctx)

	removed, err := s.relationships.DeleteFriendship(ctx, selfUID, friendUID)
	if err != nil {
		return fmt.Errorf("remove friend: %w", err)
	}
	if !removed {
		logger.Info("friendship already removed", "self", selfUID, "friend", friendUID)
		return nil
	}

	deleted, err := s.suggestions.DeleteBetween(ctx, selfUID, friendUID)
	if err != nil {
		logger.Error("cascade delete of shared suggestions failed", "self", selfUID, "friend", friendUID, "error", err)
	} else if deleted > 0 {
		logger.Info("cascade deleted shared suggestions", "count", deleted, "self", selfUID, "friend", friendUID)
	}

	s.publish(Event{Type: EventFriendsChanged, Users: []string{selfUID, friendUID}})
	if deleted > 0 {
		s.publish(Event{Type: EventSuggestionRemoved, Users: []string{selfUID, friendUID}})
	}
	return nil
}

// SuggestVideo fans a video suggestion out to the entitled recipients.
// Self-targets and non-friends are skipped (logged, not failed); the
// remaining upserts commit atomically as one batch.
func (s *Service) SuggestVideo(ctx context.Context, selfUID string, toUIDs []string, videoID, thumbnailURL, title string, reaction *string) error {
	if selfUID == "" {
		return E(KindUnauthenticated, "you must be signed in to suggest a video")
	}

	videoID = strings.TrimSpace(videoID)
	if videoID == "" || len(toUIDs) == 0 || strings.TrimSpace(thumbnailURL) == "" || strings.TrimSpace(title) == "" {
		return E(KindInvalidArgument, "missing required fields")
	}
	if err := validateReaction(reaction); err != nil {
		return err
	}

	ctx, span := logging.StartSpan(ctx, "social.suggest_video")
	defer span.End()

	friends, err := s.relationships.ListFriends(ctx, selfUID)
	if err != nil {
		return fmt.Errorf("load friends for suggest: %w", err)
	}
	friendSet := make(map[string]struct{}, len(friends))
	for _, f := range friends {
		friendSet[f.UID] = struct{}{}
	}

	logger := logging.FromContext(ctx)

	var batch []models.VideoSuggestion
	for _, toUID := range toUIDs {
		toUID = strings.TrimSpace(toUID)
		if toUID == "" || toUID == selfUID {
			continue
		}
		if _, ok := friendSet[toUID]; !ok {
			logger.Warn("skipping suggestion to non-friend", "from", selfUID, "to", toUID)
			continue
		}
		batch = append(batch, models.VideoSuggestion{
			ID:           models.SuggestionID(selfUID, toUID, videoID),
			VideoID:      videoID,
			From:         selfUID,
			To:           toUID,
			ThumbnailURL: thumbnailURL,
			Title:        title,
			Reaction:     normalizeReaction(reaction),
		})
	}

	if err := s.suggestions.UpsertAll(ctx, batch); err != nil {
		return fmt.Errorf("upsert suggestions: %w", err)
	}

	for i := range batch {
		suggestion := batch[i]
		if s.archiver != nil {
			if err := s.archiver.Enqueue(ctx, suggestion); err != nil {
				logger.Warn("enqueue thumbnail archive", "suggestionId", suggestion.ID, "error", err)
			}
		}
		s.publish(Event{
			Type:       EventSuggestionAdded,
			Users:      []string{suggestion.From, suggestion.To},
			Suggestion: &suggestion,
		})
	}

	return nil
}

// DeleteSuggestion removes a suggestion. Either party may delete; a
// missing suggestion is treated as already deleted.
func (s *Service) DeleteSuggestion(ctx context.Context, selfUID, suggestionID string) error {
	if selfUID == "" {
		return E(KindUnauthenticated, "login required")
	}

	suggestionID = strings.TrimSpace(suggestionID)
	if suggestionID == "" {
		return E(KindInvalidArgument, "missing or invalid suggestion id")
	}

	suggestion, err := s.suggestions.Get(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logging.FromContext(ctx).Info("suggestion already deleted", "suggestionId", suggestionID)
			return nil
		}
		return fmt.Errorf("load suggestion: %w", err)
	}

	if selfUID != suggestion.From && selfUID != suggestion.To {
		return E(KindPermissionDenied, "you do not have permission to delete this suggestion")
	}

	if err := s.suggestions.Delete(ctx, suggestionID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("delete suggestion: %w", err)
	}

	s.publish(Event{Type: EventSuggestionRemoved, Users: []string{suggestion.From, suggestion.To}})
	return nil
}

// UpdateReaction sets or clears the reaction text. Only the original
// sender may edit it.
func (s *Service) UpdateReaction(ctx context.Context, selfUID, suggestionID string, reaction *string) error {
	if selfUID == "" {
		return E(KindUnauthenticated, "login required")
	}

	suggestionID = strings.TrimSpace(suggestionID)
	if suggestionID == "" {
		return E(KindInvalidArgument, "missing or invalid suggestion id")
	}
	if err := validateReaction(reaction); err != nil {
		return err
	}

	suggestion, err := s.suggestions.Get(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return E(KindNotFound, "suggestion not found")
		}
		return fmt.Errorf("load suggestion: %w", err)
	}

	if suggestion.From != selfUID {
		return E(KindPermissionDenied, "only the sender can edit the reaction")
	}

	if err := s.suggestions.UpdateReaction(ctx, suggestionID, normalizeReaction(reaction)); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return E(KindNotFound, "suggestion not found")
		}
		return fmt.Errorf("update reaction: %w", err)
	}

	s.publish(Event{Type: EventSuggestionUpdated, Users: []string{suggestion.From, suggestion.To}})
	return nil
}

// MarkWatched flips the watched flag. Only the recipient may mark a
// suggestion watched.
func (s *Service) MarkWatched(ctx context.Context, selfUID, suggestionID string, watched bool) error {
	if selfUID == "" {
		return E(KindUnauthenticated, "login required")
	}

	suggestionID = strings.TrimSpace(suggestionID)
	if suggestionID == "" {
		return E(KindInvalidArgument, "missing or invalid suggestion id")
	}

	suggestion, err := s.suggestions.Get(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return E(KindNotFound, "suggestion not found")
		}
		return fmt.Errorf("load suggestion: %w", err)
	}

	if suggestion.To != selfUID {
		return E(KindPermissionDenied, "only the recipient can mark a suggestion watched")
	}

	if err := s.suggestions.SetWatched(ctx, suggestionID, watched); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return E(KindNotFound, "suggestion not found")
		}
		return fmt.Errorf("mark watched: %w", err)
	}

	s.publish(Event{Type: EventSuggestionUpdated, Users: []string{suggestion.From, suggestion.To}})
	return nil
}

// Friends returns the user's confirmed friends for mirror snapshots.
func (s *Service) Friends(ctx context.Context, uid string) ([]models.Friend, error) {
	return s.relationships.ListFriends(ctx, uid)
}

// Requests returns the user's pending requests for mirror snapshots.
func (s *Service) Requests(ctx context.Context, uid string) (repositories.RequestSnapshot, error) {
	return s.relationships.ListRequests(ctx, uid)
}

// Suggested returns suggestions addressed to the user.
func (s *Service) Suggested(ctx context.Context, uid string) ([]models.VideoSuggestion, error) {
	return s.suggestions.ListForRecipient(ctx, uid)
}

// Sent returns suggestions the user has sent.
func (s *Service) Sent(ctx context.Context, uid string) ([]models.VideoSuggestion, error) {
	return s.suggestions.ListForSender(ctx, uid)
}

func (s *Service) publish(event Event) {
	if s.events != nil {
		s.events.Publish(event)
	}
}

func validateReaction(reaction *string) error {
	if reaction == nil {
		return nil
	}
	if len(*reaction) > MaxReactionLength {
		return Ef(KindInvalidArgument, "reaction exceeds %d characters", MaxReactionLength)
	}
	return nil
}

// normalizeReaction maps empty strings to nil so "no reaction" has a
// single representation.
func normalizeReaction(reaction *string) *string {
	if reaction == nil || *reaction == "" {
		return nil
	}
	return reaction
}
