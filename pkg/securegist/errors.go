package securegist

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrGistNotFound indicates no record exists for the id
	ErrGistNotFound = errors.New("gist not found")

	// ErrGistGone indicates the record existed but has expired or spent its
	// read budget, and has been destroyed
	ErrGistGone = errors.New("gist gone")

	// ErrStorageUnavailable indicates an object-storage provider call failed
	ErrStorageUnavailable = errors.New("object storage unavailable")

	// ErrInvalidExpiration indicates an unparseable expiration timestamp
	ErrInvalidExpiration = errors.New("invalid expiration timestamp")
)

// Reasons a gist can become Gone.
const (
	GoneReasonExpired   = "gist expired"
	GoneReasonExhausted = "read limit exceeded"
)

// GistError represents an error from a gist lifecycle operation
type GistError struct {
	GistID uuid.UUID
	Op     string
	Err    error
}

func (e *GistError) Error() string {
	return fmt.Sprintf("gist operation %s failed for gist %s: %v", e.Op, e.GistID, e.Err)
}

func (e *GistError) Unwrap() error {
	return e.Err
}

// GoneError reports why a gist was destroyed on access. It wraps ErrGistGone
// so callers can match with errors.Is while still surfacing the reason.
type GoneError struct {
	GistID uuid.UUID
	Reason string
}

func (e *GoneError) Error() string {
	return fmt.Sprintf("gist %s gone: %s", e.GistID, e.Reason)
}

func (e *GoneError) Unwrap() error {
	return ErrGistGone
}

// StorageError represents a failed object-storage call. The provider error is
// kept for logs but the chain always carries ErrStorageUnavailable, so raw
// provider details never decide caller behavior.
type StorageError struct {
	Bucket string
	Key    string
	Op     string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s in bucket %s: %v", e.Op, e.Key, e.Bucket, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}
