// Package securegist implements the lifecycle of self-destructing encrypted
// gists: opaque client-encrypted blobs held in object storage, gated by a
// metadata record that enforces read-count and expiration limits.
//
// The package exposes a single Service interface that orchestrates gist
// creation (metadata record plus a presigned upload grant), access-gated
// reads (atomic read-count increment, lazy expiration), and deletion.
// Implementations of the Repository (memory, Postgres, SQLite) and the
// BlobStore (memory, S3) are provided under subpackages.
//
// The server never interprets gist metadata; clients encrypt payloads before
// upload and may stash cipher parameters (IVs, salts) in the metadata
// document. Expiration is lazy: an expired or read-exhausted gist is deleted
// the first time a read observes it, not by a background sweep.
package securegist
