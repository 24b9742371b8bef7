package repositories

import (
	"context"

	"github.com/shareyt/backend/internal/models"
)

// SuggestionRepository exposes data access for video suggestions.
type SuggestionRepository interface {
	// UpsertAll writes the provided suggestions in a single transaction.
	// An existing suggestion with the same composite id is overwritten:
	// the watched flag resets and the timestamp refreshes.
	UpsertAll(ctx context.Context, suggestions []models.VideoSuggestion) error

	Get(ctx context.Context, id string) (models.VideoSuggestion, error)

	// Delete removes a suggestion by id. Returns ErrNotFound when absent so
	// callers can decide whether "already gone" counts as success.
	Delete(ctx context.Context, id string) error

	UpdateReaction(ctx context.Context, id string, reaction *string) error
	SetWatched(ctx context.Context, id string, watched bool) error

	ListForRecipient(ctx context.Context, uid string) ([]models.VideoSuggestion, error)
	ListForSender(ctx context.Context, uid string) ([]models.VideoSuggestion, error)

	// DeleteBetween removes every suggestion exchanged between the two
	// users, in either direction, returning the number deleted.
	DeleteBetween(ctx context.Context, a, b string) (int64, error)
}

// ThumbnailUpdater persists archive status updates for suggestion thumbnails.
type ThumbnailUpdater interface {
	MarkThumbnailReady(ctx context.Context, id, location string) error
	MarkThumbnailFailed(ctx context.Context, id string) error
}
