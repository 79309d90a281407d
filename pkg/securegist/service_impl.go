package securegist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	repository       Repository
	blobStore        BlobStore
	logger           *slog.Logger
	uploadMaxBytes   int64
	uploadGrantTTL   time.Duration
	downloadGrantTTL time.Duration
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the gist record repository
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the object store gateway
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithLogger sets the logger used for best-effort failure reporting
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithUploadSizeLimit overrides the upload grant size ceiling
func WithUploadSizeLimit(maxBytes int64) Option {
	return func(s *service) {
		s.uploadMaxBytes = maxBytes
	}
}

// WithGrantTTLs overrides the validity windows for upload and download grants
func WithGrantTTLs(upload, download time.Duration) Option {
	return func(s *service) {
		s.uploadGrantTTL = upload
		s.downloadGrantTTL = download
	}
}

// New creates a new lifecycle service with the given options. A repository
// and a blob store are required; both are injected here rather than reached
// through globals so tests can substitute doubles.
func New(options ...Option) (Service, error) {
	s := &service{
		uploadMaxBytes:   DefaultUploadMaxBytes,
		uploadGrantTTL:   DefaultGrantTTL,
		downloadGrantTTL: DefaultGrantTTL,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

func (s *service) CreateGist(ctx context.Context, req CreateGistRequest) (*Gist, *UploadGrant, error) {
	maxReads := req.MaxReads
	if maxReads <= 0 {
		maxReads = DefaultMaxReads
	}

	gist := &Gist{
		ID:             uuid.New(),
		Metadata:       req.Metadata,
		CreatedAt:      time.Now().UTC(),
		ExpirationDate: normalizeExpiration(req.ExpirationDate),
		ReadCount:      0,
		MaxReads:       maxReads,
	}

	if err := s.repository.CreateGist(ctx, gist); err != nil {
		return nil, nil, &GistError{GistID: gist.ID, Op: "create", Err: err}
	}

	grant, err := s.blobStore.MintUploadGrant(ctx, gist.ID.String(), s.uploadMaxBytes, s.uploadGrantTTL)
	if err != nil {
		// The blob can never arrive without a grant, so don't leave a
		// record pointing at an unreachable store.
		if rbErr := s.repository.DeleteGist(ctx, gist.ID); rbErr != nil && !errors.Is(rbErr, ErrGistNotFound) {
			s.logger.Error("failed to roll back gist record after grant failure",
				"gist_id", gist.ID, "error", rbErr)
		}
		return nil, nil, err
	}

	return gist, grant, nil
}

func (s *service) ReadGist(ctx context.Context, id uuid.UUID) (*GistView, error) {
	gist, err := s.repository.GetGist(ctx, id)
	if err != nil {
		return nil, err
	}

	// Lazy expiration: the read that observes the condition destroys the
	// gist. Expiration is checked before the read budget, so an expired
	// gist reports Gone even when it still has budget.
	if gist.ExpirationDate != nil && gist.ExpirationDate.Before(time.Now().UTC()) {
		s.destroy(ctx, id)
		return nil, &GoneError{GistID: id, Reason: GoneReasonExpired}
	}

	readCount, err := s.repository.IncrementReadCount(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrGistGone):
			s.destroy(ctx, id)
			return nil, &GoneError{GistID: id, Reason: GoneReasonExhausted}
		case errors.Is(err, ErrGistNotFound):
			// Destroyed by a concurrent access between fetch and increment.
			return nil, err
		default:
			return nil, &GistError{GistID: id, Op: "increment_read_count", Err: err}
		}
	}

	downloadURL, err := s.blobStore.MintDownloadGrant(ctx, id.String(), s.downloadGrantTTL)
	if err != nil {
		return nil, err
	}

	return &GistView{
		ID:             gist.ID,
		DownloadURL:    downloadURL,
		Metadata:       gist.Metadata,
		ExpirationDate: gist.ExpirationDate,
		ReadCount:      readCount,
		MaxReads:       gist.MaxReads,
		VersionHistory: gist.VersionHistory,
	}, nil
}

func (s *service) DeleteGist(ctx context.Context, id uuid.UUID) (*Gist, error) {
	gist, err := s.repository.GetGist(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repository.DeleteGist(ctx, id); err != nil {
		return nil, err
	}

	// Metadata deletion is the authoritative "gist no longer exists"
	// signal; a leaked blob is a logged anomaly, not an error.
	if err := s.blobStore.Delete(ctx, id.String()); err != nil {
		s.logger.Error("failed to delete gist blob", "gist_id", id, "error", err)
	}

	return gist, nil
}

// destroy removes the record and blob after an on-access expiration or
// exhaustion. Concurrent accesses may race to destroy the same gist, so a
// missing record is not an error here.
func (s *service) destroy(ctx context.Context, id uuid.UUID) {
	if err := s.repository.DeleteGist(ctx, id); err != nil && !errors.Is(err, ErrGistNotFound) {
		s.logger.Error("failed to delete gist record", "gist_id", id, "error", err)
		return
	}
	if err := s.blobStore.Delete(ctx, id.String()); err != nil {
		s.logger.Error("failed to delete gist blob", "gist_id", id, "error", err)
	}
}
