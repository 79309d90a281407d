package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/securegist/securegist/pkg/securegist"
)

// Backend is an in-memory implementation of the securegist.BlobStore
// interface. Grants carry synthetic memory:// URLs; tests and dev mode use
// the grant bookkeeping to observe what the lifecycle engine requested.
type Backend struct {
	mu      sync.RWMutex
	granted map[string]int // key -> number of upload grants minted
	deleted map[string]int // key -> number of delete calls
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		granted: make(map[string]int),
		deleted: make(map[string]int),
	}
}

func (b *Backend) MintUploadGrant(ctx context.Context, key string, maxSizeBytes int64, ttl time.Duration) (*securegist.UploadGrant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.granted[key]++
	return &securegist.UploadGrant{
		URL: fmt.Sprintf("memory://uploads/%s", key),
		Fields: map[string]string{
			"key":                  key,
			"content-length-range": strconv.FormatInt(maxSizeBytes, 10),
			"expires":              time.Now().UTC().Add(ttl).Format(time.RFC3339),
		},
	}, nil
}

func (b *Backend) MintDownloadGrant(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("memory://downloads/%s?expires=%d", key, int64(ttl.Seconds())), nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.deleted[key]++
	return nil
}

// UploadGrantCount reports how many upload grants were minted for key.
func (b *Backend) UploadGrantCount(key string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.granted[key]
}

// DeleteCount reports how many times key was deleted.
func (b *Backend) DeleteCount(key string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.deleted[key]
}
