package source

import (
	"errors"
	"fmt"
)

// Sentinel errors for listing operations.
var (
	// ErrNotFound indicates the addressed folder or item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnavailable indicates the backend service is unavailable.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrThrottled indicates the request was rate limited by the backend
	// and the retry budget was exhausted.
	ErrThrottled = errors.New("request throttled")
)

// SourceError wraps backend-specific errors with context.
type SourceError struct {
	// Op is the operation that failed (e.g., "ListFolder", "Stat").
	Op string

	// Backend is the backend type (e.g., "msgraph").
	Backend Backend

	// Root is the root handle, if applicable.
	Root string

	// Path is the relative path being listed, if applicable.
	Path string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %s%s: %v", e.Backend, e.Op, e.Root, e.Path, e.Err)
	}
	if e.Root != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Backend, e.Op, e.Root, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates the folder or item does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAccessDenied returns true if the error indicates insufficient permissions.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidCredentials returns true if the error indicates authentication failed.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// IsUnavailable returns true if the error indicates the backend service is unavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsThrottled returns true if the error indicates the retry budget was
// exhausted while being rate limited.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}
