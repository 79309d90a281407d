package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/securegist/securegist/pkg/securegist"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements securegist.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Migrate creates the gists table if it does not exist. The service creates
// its schema at startup rather than shipping a separate migration tool.
func (r *Repository) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS gists (
			id UUID PRIMARY KEY,
			metadata JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expiration_date TIMESTAMPTZ,
			read_count INTEGER NOT NULL DEFAULT 0,
			max_reads INTEGER NOT NULL DEFAULT 100,
			version_history JSONB
		)`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return r.handlePostgresError("migrate", err)
	}
	return nil
}

func (r *Repository) CreateGist(ctx context.Context, gist *securegist.Gist) error {
	query := `
		INSERT INTO gists (
			id, metadata, created_at, expiration_date, read_count, max_reads, version_history
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		gist.ID, gist.Metadata, gist.CreatedAt, gist.ExpirationDate,
		gist.ReadCount, gist.MaxReads, gist.VersionHistory)

	if err != nil {
		return r.handlePostgresError("create gist", err)
	}

	return nil
}

func (r *Repository) GetGist(ctx context.Context, id uuid.UUID) (*securegist.Gist, error) {
	query := `
		SELECT id, metadata, created_at, expiration_date, read_count, max_reads, version_history
		FROM gists WHERE id = $1`

	var gist securegist.Gist
	err := r.db.QueryRow(ctx, query, id).Scan(
		&gist.ID, &gist.Metadata, &gist.CreatedAt, &gist.ExpirationDate,
		&gist.ReadCount, &gist.MaxReads, &gist.VersionHistory)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, securegist.ErrGistNotFound
		}
		return nil, r.handlePostgresError("get gist", err)
	}

	return &gist, nil
}

// IncrementReadCount serializes concurrent check-then-increment sequences in
// a single conditional UPDATE: the row-level lock guarantees that at most
// max_reads reads ever succeed, no matter how many run at once.
func (r *Repository) IncrementReadCount(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE gists SET read_count = read_count + 1
		WHERE id = $1 AND read_count < max_reads
		RETURNING read_count`

	var readCount int
	err := r.db.QueryRow(ctx, query, id).Scan(&readCount)
	if err == nil {
		return readCount, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, r.handlePostgresError("increment read count", err)
	}

	// No row updated: either the record is gone or its budget is spent.
	var exists bool
	err = r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM gists WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return 0, r.handlePostgresError("increment read count", err)
	}
	if !exists {
		return 0, securegist.ErrGistNotFound
	}
	return 0, securegist.ErrGistGone
}

func (r *Repository) DeleteGist(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM gists WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete gist", err)
	}
	if tag.RowsAffected() == 0 {
		return securegist.ErrGistNotFound
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("gist already exists")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}
