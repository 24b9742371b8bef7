package social

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure. Handlers map kinds onto HTTP
// statuses; clients branch on the kind, never the message.
type Kind string

const (
	KindUnauthenticated  Kind = "unauthenticated"
	KindInvalidArgument  Kind = "invalid-argument"
	KindNotFound         Kind = "not-found"
	KindAlreadyExists    Kind = "already-exists"
	KindPermissionDenied Kind = "permission-denied"
	KindInternal         Kind = "internal"
)

// Error is a typed operation failure carrying a kind and a user-safe message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// E constructs a typed error.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Ef constructs a typed error with a formatted message.
func Ef(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an error, defaulting to KindInternal for
// anything that is not a *social.Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
