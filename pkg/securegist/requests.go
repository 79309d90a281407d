package securegist

import "time"

// Request DTOs

// CreateGistRequest contains parameters for creating a gist. Metadata is an
// opaque client document and is stored uninterpreted. ExpirationDate, when
// set, is normalized to UTC before storage; nil means the gist never expires
// by time. MaxReads <= 0 falls back to DefaultMaxReads.
type CreateGistRequest struct {
	Metadata       map[string]interface{}
	ExpirationDate *time.Time
	MaxReads       int
}
