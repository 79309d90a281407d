package securegist

import (
	"fmt"
	"time"
)

// ParseExpiration parses an RFC 3339 timestamp and normalizes it to UTC.
// Failures wrap ErrInvalidExpiration.
func ParseExpiration(s string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidExpiration, s)
	}
	u := t.UTC()
	return &u, nil
}

// normalizeExpiration floors any input offset to UTC so stored instants
// compare consistently.
func normalizeExpiration(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
