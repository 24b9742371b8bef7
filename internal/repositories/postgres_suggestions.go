package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shareyt/backend/internal/db"
	"github.com/shareyt/backend/internal/models"
)

// PostgresSuggestionRepository provides PostgreSQL-backed persistence for
// video suggestions.
type PostgresSuggestionRepository struct {
	pool db.Pool
}

// NewPostgresSuggestionRepository constructs a suggestion repository backed
// by PostgreSQL.
func NewPostgresSuggestionRepository(pool db.Pool) *PostgresSuggestionRepository {
	return &PostgresSuggestionRepository{pool: pool}
}

const suggestionColumns = `
        id, video_id, from_uid, to_uid, thumbnail_url, title,
        watched, reaction, created_at, thumb_status, thumb_location`

// UpsertAll writes every suggestion in one transaction. Overwriting an
// existing composite id resets the watched flag and refreshes the
// server timestamp, matching create-or-overwrite semantics.
func (r *PostgresSuggestionRepository) UpsertAll(ctx context.Context, suggestions []models.VideoSuggestion) error {
	if len(suggestions) == 0 {
		return nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin upsert suggestions: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, s := range suggestions {
		_, err = tx.Exec(ctx, `
            INSERT INTO video_suggestions
                (id, video_id, from_uid, to_uid, thumbnail_url, title, watched, reaction, created_at, thumb_status, thumb_location)
            VALUES ($1, $2, $3, $4, $5, $6, false, $7, now(), $8, '')
            ON CONFLICT (id) DO UPDATE SET
                thumbnail_url = EXCLUDED.thumbnail_url,
                title = EXCLUDED.title,
                watched = false,
                reaction = EXCLUDED.reaction,
                created_at = now(),
                thumb_status = EXCLUDED.thumb_status,
                thumb_location = ''
        `, s.ID, s.VideoID, s.From, s.To, s.ThumbnailURL, s.Title, s.Reaction, models.ThumbStatusPending)
		if err != nil {
			return fmt.Errorf("upsert suggestion %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert suggestions: %w", err)
	}

	return nil
}

// Get loads a suggestion by its composite id.
func (r *PostgresSuggestionRepository) Get(ctx context.Context, id string) (models.VideoSuggestion, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoSuggestion{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT`+suggestionColumns+`
        FROM video_suggestions
        WHERE id = $1
    `, id)

	s, err := scanSuggestion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VideoSuggestion{}, ErrNotFound
		}
		return models.VideoSuggestion{}, fmt.Errorf("select suggestion: %w", err)
	}

	return s, nil
}

// Delete removes a suggestion by id.
func (r *PostgresSuggestionRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM video_suggestions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete suggestion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateReaction sets or clears the sender's reaction text.
func (r *PostgresSuggestionRepository) UpdateReaction(ctx context.Context, id string, reaction *string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE video_suggestions SET reaction = $2 WHERE id = $1
    `, id, reaction)
	if err != nil {
		return fmt.Errorf("update reaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SetWatched flips the recipient's watched flag.
func (r *PostgresSuggestionRepository) SetWatched(ctx context.Context, id string, watched bool) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE video_suggestions SET watched = $2 WHERE id = $1
    `, id, watched)
	if err != nil {
		return fmt.Errorf("update watched: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListForRecipient returns suggestions addressed to the user, newest first.
func (r *PostgresSuggestionRepository) ListForRecipient(ctx context.Context, uid string) ([]models.VideoSuggestion, error) {
	return r.list(ctx, `to_uid`, uid)
}

// ListForSender returns suggestions the user has sent, newest first.
func (r *PostgresSuggestionRepository) ListForSender(ctx context.Context, uid string) ([]models.VideoSuggestion, error) {
	return r.list(ctx, `from_uid`, uid)
}

func (r *PostgresSuggestionRepository) list(ctx context.Context, column, uid string) ([]models.VideoSuggestion, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT`+suggestionColumns+`
        FROM video_suggestions
        WHERE `+column+` = $1
        ORDER BY created_at DESC
    `, uid)
	if err != nil {
		return nil, fmt.Errorf("query suggestions: %w", err)
	}
	defer rows.Close()

	var out []models.VideoSuggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suggestions: %w", err)
	}

	return out, nil
}

// DeleteBetween removes all suggestions exchanged between a and b.
func (r *PostgresSuggestionRepository) DeleteBetween(ctx context.Context, a, b string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM video_suggestions
        WHERE (from_uid = $1 AND to_uid = $2) OR (from_uid = $2 AND to_uid = $1)
    `, a, b)
	if err != nil {
		return 0, fmt.Errorf("delete suggestions between users: %w", err)
	}

	return tag.RowsAffected(), nil
}

// MarkThumbnailReady records a successfully archived thumbnail location.
func (r *PostgresSuggestionRepository) MarkThumbnailReady(ctx context.Context, id, location string) error {
	return r.setThumbStatus(ctx, id, models.ThumbStatusReady, location)
}

// MarkThumbnailFailed records a failed archive attempt.
func (r *PostgresSuggestionRepository) MarkThumbnailFailed(ctx context.Context, id string) error {
	return r.setThumbStatus(ctx, id, models.ThumbStatusFailed, "")
}

func (r *PostgresSuggestionRepository) setThumbStatus(ctx context.Context, id, status, location string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE video_suggestions
        SET thumb_status = $2, thumb_location = $3
        WHERE id = $1
    `, id, status, location)
	if err != nil {
		return fmt.Errorf("update thumbnail status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanSuggestion(row pgx.Row) (models.VideoSuggestion, error) {
	var s models.VideoSuggestion
	err := row.Scan(
		&s.ID, &s.VideoID, &s.From, &s.To, &s.ThumbnailURL, &s.Title,
		&s.Watched, &s.Reaction, &s.CreatedAt, &s.ThumbStatus, &s.ThumbLocation,
	)
	return s, err
}

var _ SuggestionRepository = (*PostgresSuggestionRepository)(nil)
var _ ThumbnailUpdater = (*PostgresSuggestionRepository)(nil)
