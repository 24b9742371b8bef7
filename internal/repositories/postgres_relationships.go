package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shareyt/backend/internal/db"
	"github.com/shareyt/backend/internal/models"
)

// PostgresRelationshipRepository provides PostgreSQL-backed persistence for
// friend requests and friendships.
type PostgresRelationshipRepository struct {
	pool db.Pool
}

// NewPostgresRelationshipRepository constructs a relationship repository
// backed by PostgreSQL.
func NewPostgresRelationshipRepository(pool db.Pool) *PostgresRelationshipRepository {
	return &PostgresRelationshipRepository{pool: pool}
}

// CreateRequest records a pending friend request. The reverse direction is
// checked inside the transaction so two users inviting each other
// concurrently resolve to exactly one pending request: when the commits
// overlap one of them aborts with a serialization failure, and the retry
// sees the committed reverse row and returns ErrConflict.
func (r *PostgresRelationshipRepository) CreateRequest(ctx context.Context, fromUID, toUID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	for attempt := 0; ; attempt++ {
		err := r.createRequestTx(ctx, conn, fromUID, toUID)
		if !retryableTxError(err) || attempt >= txMaxRetries-1 {
			return err
		}
	}
}

func (r *PostgresRelationshipRepository) createRequestTx(ctx context.Context, conn *pgxpool.Conn, fromUID, toUID string) error {
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin create request: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM friend_requests
            WHERE requester_id = $1 AND receiver_id = $2
        )
    `, toUID, fromUID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check reverse request: %w", err)
	}
	if exists {
		return ErrConflict
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO friend_requests (requester_id, receiver_id, created_at)
        VALUES ($1, $2, now())
        ON CONFLICT (requester_id, receiver_id)
        DO UPDATE SET created_at = now()
    `, fromUID, toUID)
	if err != nil {
		return fmt.Errorf("insert friend request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create request: %w", err)
	}

	return nil
}

// AcceptRequest converts a pending request into a friendship. Deleting the
// request and inserting the friendship happen in one transaction so no
// intermediate state is ever observable.
func (r *PostgresRelationshipRepository) AcceptRequest(ctx context.Context, selfUID, fromUID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	for attempt := 0; ; attempt++ {
		err := r.acceptRequestTx(ctx, conn, selfUID, fromUID)
		if !retryableTxError(err) || attempt >= txMaxRetries-1 {
			return err
		}
	}
}

func (r *PostgresRelationshipRepository) acceptRequestTx(ctx context.Context, conn *pgxpool.Conn, selfUID, fromUID string) error {
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin accept request: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        DELETE FROM friend_requests
        WHERE requester_id = $1 AND receiver_id = $2
    `, fromUID, selfUID)
	if err != nil {
		return fmt.Errorf("delete accepted request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	userA, userB := models.CanonicalPair(selfUID, fromUID)
	_, err = tx.Exec(ctx, `
        INSERT INTO friendships (user_a, user_b, created_at)
        VALUES ($1, $2, now())
        ON CONFLICT (user_a, user_b) DO NOTHING
    `, userA, userB)
	if err != nil {
		return fmt.Errorf("insert friendship: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit accept request: %w", err)
	}

	return nil
}

// DeleteRequest removes a pending request. An absent request succeeds
// silently: the sender may have raced a cancellation.
func (r *PostgresRelationshipRepository) DeleteRequest(ctx context.Context, selfUID, fromUID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        DELETE FROM friend_requests
        WHERE requester_id = $1 AND receiver_id = $2
    `, fromUID, selfUID)
	if err != nil {
		return fmt.Errorf("delete friend request: %w", err)
	}

	return nil
}

// DeleteFriendship removes the friendship pair, reporting whether one
// existed. Idempotent by the same rule as DeleteRequest.
func (r *PostgresRelationshipRepository) DeleteFriendship(ctx context.Context, selfUID, friendUID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	userA, userB := models.CanonicalPair(selfUID, friendUID)
	tag, err := conn.Exec(ctx, `
        DELETE FROM friendships
        WHERE user_a = $1 AND user_b = $2
    `, userA, userB)
	if err != nil {
		return false, fmt.Errorf("delete friendship: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListFriends returns the user's confirmed friends, newest first.
func (r *PostgresRelationshipRepository) ListFriends(ctx context.Context, uid string) ([]models.Friend, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT CASE WHEN user_a = $1 THEN user_b ELSE user_a END, created_at
        FROM friendships
        WHERE user_a = $1 OR user_b = $1
        ORDER BY created_at DESC
    `, uid)
	if err != nil {
		return nil, fmt.Errorf("query friendships: %w", err)
	}
	defer rows.Close()

	var friends []models.Friend
	for rows.Next() {
		var f models.Friend
		if err := rows.Scan(&f.UID, &f.Since); err != nil {
			return nil, fmt.Errorf("scan friendship: %w", err)
		}
		friends = append(friends, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friendships: %w", err)
	}

	return friends, nil
}

// ListRequests returns the pending requests the user has sent and received.
func (r *PostgresRelationshipRepository) ListRequests(ctx context.Context, uid string) (RequestSnapshot, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return RequestSnapshot{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT requester_id, receiver_id, created_at
        FROM friend_requests
        WHERE requester_id = $1 OR receiver_id = $1
        ORDER BY created_at DESC
    `, uid)
	if err != nil {
		return RequestSnapshot{}, fmt.Errorf("query friend requests: %w", err)
	}
	defer rows.Close()

	var snapshot RequestSnapshot
	for rows.Next() {
		var req models.FriendRequest
		if err := rows.Scan(&req.Requester, &req.Receiver, &req.CreatedAt); err != nil {
			return RequestSnapshot{}, fmt.Errorf("scan friend request: %w", err)
		}
		if req.Requester == uid {
			snapshot.Sent = append(snapshot.Sent, req)
		} else {
			snapshot.Received = append(snapshot.Received, req)
		}
	}

	if err := rows.Err(); err != nil {
		return RequestSnapshot{}, fmt.Errorf("iterate friend requests: %w", err)
	}

	return snapshot, nil
}

// AreFriends reports whether a confirmed friendship exists between a and b.
func (r *PostgresRelationshipRepository) AreFriends(ctx context.Context, a, b string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	userA, userB := models.CanonicalPair(a, b)
	var exists bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM friendships WHERE user_a = $1 AND user_b = $2
        )
    `, userA, userB).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}

	return exists, nil
}

// ConnectedUIDs gathers every uid the user is linked to by friendship or a
// pending request in either direction. Used to authorize profile lookups.
func (r *PostgresRelationshipRepository) ConnectedUIDs(ctx context.Context, uid string) (map[string]struct{}, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT CASE WHEN user_a = $1 THEN user_b ELSE user_a END
        FROM friendships
        WHERE user_a = $1 OR user_b = $1
        UNION
        SELECT CASE WHEN requester_id = $1 THEN receiver_id ELSE requester_id END
        FROM friend_requests
        WHERE requester_id = $1 OR receiver_id = $1
    `, uid)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	connected := make(map[string]struct{})
	for rows.Next() {
		var other string
		if err := rows.Scan(&other); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		connected[other] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}

	return connected, nil
}

var _ RelationshipRepository = (*PostgresRelationshipRepository)(nil)
