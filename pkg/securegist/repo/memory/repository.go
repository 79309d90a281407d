package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/securegist/securegist/pkg/securegist"
)

// Repository implements securegist.Repository using in-memory storage. The
// mutex serializes the conditional read-count increment, which is the one
// atomicity guarantee the lifecycle engine relies on.
type Repository struct {
	mu    sync.RWMutex
	gists map[uuid.UUID]*securegist.Gist
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		gists: make(map[uuid.UUID]*securegist.Gist),
	}
}

func (r *Repository) CreateGist(ctx context.Context, gist *securegist.Gist) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to avoid external modifications
	gistCopy := *gist
	r.gists[gist.ID] = &gistCopy

	return nil
}

func (r *Repository) GetGist(ctx context.Context, id uuid.UUID) (*securegist.Gist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	gist, exists := r.gists[id]
	if !exists {
		return nil, securegist.ErrGistNotFound
	}

	gistCopy := *gist
	return &gistCopy, nil
}

func (r *Repository) IncrementReadCount(ctx context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	gist, exists := r.gists[id]
	if !exists {
		return 0, securegist.ErrGistNotFound
	}
	if gist.ReadCount >= gist.MaxReads {
		return 0, securegist.ErrGistGone
	}

	gist.ReadCount++
	return gist.ReadCount, nil
}

func (r *Repository) DeleteGist(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.gists[id]; !exists {
		return securegist.ErrGistNotFound
	}

	delete(r.gists, id)
	return nil
}
