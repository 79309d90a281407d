package securegist

import (
	"time"

	"github.com/google/uuid"
)

// Defaults applied when a create request leaves the field unset.
const (
	// DefaultMaxReads is the read budget assigned when a create request
	// does not specify one.
	DefaultMaxReads = 100

	// DefaultUploadMaxBytes caps the size of a direct client upload (10 MiB).
	DefaultUploadMaxBytes = 10 << 20

	// DefaultGrantTTL is the validity window for upload and download grants.
	DefaultGrantTTL = time.Hour
)

// Gist is the metadata record for one shareable encrypted blob. The ID is
// both the record's primary key and the object-storage key of its blob.
type Gist struct {
	ID             uuid.UUID              `json:"gist_id"`
	Metadata       map[string]interface{} `json:"gist_metadata"`
	CreatedAt      time.Time              `json:"created_at"`
	ExpirationDate *time.Time             `json:"expiration_date,omitempty"`
	ReadCount      int                    `json:"read_count"`
	MaxReads       int                    `json:"max_reads"`
	VersionHistory []interface{}          `json:"version_history,omitempty"`
}

// UploadGrant is a presigned POST credential permitting a single direct
// upload of the gist blob, valid until its TTL elapses. Fields must be sent
// as form values alongside the file.
type UploadGrant struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// GistView is what a successful read returns: the record's metadata plus a
// time-limited download grant for the blob. ReadCount is the post-increment
// value, so the very next read observes it.
type GistView struct {
	ID             uuid.UUID
	DownloadURL    string
	Metadata       map[string]interface{}
	ExpirationDate *time.Time
	ReadCount      int
	MaxReads       int
	VersionHistory []interface{}
}
