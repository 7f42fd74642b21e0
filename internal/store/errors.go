package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every error reporting a missing record.
	ErrNotFound = errors.New("not found")
	// ErrBackend is matched by every BackendError.
	ErrBackend = errors.New("backend error")
	// ErrEnvironmentUnavailable is returned by the local backend when no
	// persistent key/value storage exists in this execution context.
	ErrEnvironmentUnavailable = errors.New("local storage is not available in this environment")
)

// NotFoundError reports an operation that targeted a nonexistent id.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: record %s not found", e.Collection, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// BackendError reports a backend failure other than absence: network,
// permission, malformed request or timeout.
type BackendError struct {
	Collection string
	Op         string
	Err        error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}
