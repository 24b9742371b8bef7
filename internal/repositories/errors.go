package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write collides with an existing row,
	// such as a duplicate email or a reverse pending friend request.
	ErrConflict = errors.New("record conflict")
)

// txMaxRetries bounds re-runs of serializable transactions that abort
// under contention.
const txMaxRetries = 3

// retryableTxError reports whether err is a serialization failure or
// deadlock abort that a fresh transaction attempt can resolve.
func retryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
