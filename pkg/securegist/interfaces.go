package securegist

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the object-storage capabilities the lifecycle engine
// depends on. Implementations must never surface raw provider errors; every
// failure is wrapped so that errors.Is(err, ErrStorageUnavailable) holds.
type BlobStore interface {
	// MintUploadGrant returns a presigned-POST credential permitting one
	// direct upload of at most maxSizeBytes to the object at key, valid
	// for ttl.
	MintUploadGrant(ctx context.Context, key string, maxSizeBytes int64, ttl time.Duration) (*UploadGrant, error)

	// MintDownloadGrant returns a time-limited direct-download URL for the
	// object at key.
	MintDownloadGrant(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
}

// Repository defines gist record persistence. It holds no business rules;
// the one behavioral contract is that IncrementReadCount is atomic.
type Repository interface {
	// CreateGist persists a new record.
	CreateGist(ctx context.Context, gist *Gist) error

	// GetGist returns the record for id, or ErrGistNotFound.
	GetGist(ctx context.Context, id uuid.UUID) (*Gist, error)

	// IncrementReadCount performs read_count++ for id as a single atomic
	// conditional update: the increment happens only while read_count is
	// strictly below max_reads, and concurrent callers serialize on it.
	// Returns the post-increment count, ErrGistNotFound if no record
	// exists, or ErrGistGone if the read budget is already spent.
	IncrementReadCount(ctx context.Context, id uuid.UUID) (int, error)

	// DeleteGist removes the record for id, or returns ErrGistNotFound.
	DeleteGist(ctx context.Context, id uuid.UUID) error
}
