package securegist

import (
	"context"

	"github.com/google/uuid"
)

// Service is the gist lifecycle engine: the only component with conditional
// business logic. It coordinates the Repository and the BlobStore so that
// record and blob stay consistent (best-effort on the blob side).
type Service interface {
	// CreateGist persists a new record and returns it with an upload grant
	// the client uses to push the encrypted blob directly to storage.
	CreateGist(ctx context.Context, req CreateGistRequest) (*Gist, *UploadGrant, error)

	// ReadGist enforces expiration and read budget, durably increments the
	// read count, and mints a download grant. An expired or exhausted gist
	// is destroyed and reported as ErrGistGone.
	ReadGist(ctx context.Context, id uuid.UUID) (*GistView, error)

	// DeleteGist removes the record and, best-effort, its blob. Returns
	// the removed record, or ErrGistNotFound.
	DeleteGist(ctx context.Context, id uuid.UUID) (*Gist, error)
}
