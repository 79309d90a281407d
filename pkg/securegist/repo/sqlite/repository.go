package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/securegist/securegist/pkg/securegist"
)

// Repository implements securegist.Repository on SQLite for single-node
// deployments. Timestamps are stored as RFC 3339 UTC text, metadata and
// version history as JSON text.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and bootstraps the schema.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*Repository, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps the conditional increment serialized and
	// avoids SQLITE_BUSY churn under concurrent requests.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply pragma: %w", err)
		}
	}

	r := &Repository{db: db}
	if err := r.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return r, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Migrate creates the gists table if it does not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS gists (
			id TEXT PRIMARY KEY,
			metadata TEXT NOT NULL,
			created_at TEXT NOT NULL,
			expiration_date TEXT,
			read_count INTEGER NOT NULL DEFAULT 0,
			max_reads INTEGER NOT NULL DEFAULT 100,
			version_history TEXT
		)`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (r *Repository) CreateGist(ctx context.Context, gist *securegist.Gist) error {
	metadata, err := json.Marshal(gist.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	var versionHistory sql.NullString
	if gist.VersionHistory != nil {
		raw, err := json.Marshal(gist.VersionHistory)
		if err != nil {
			return fmt.Errorf("failed to encode version history: %w", err)
		}
		versionHistory = sql.NullString{String: string(raw), Valid: true}
	}

	query := `
		INSERT INTO gists (
			id, metadata, created_at, expiration_date, read_count, max_reads, version_history
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		gist.ID.String(), string(metadata), formatTime(gist.CreatedAt),
		formatTimePtr(gist.ExpirationDate), gist.ReadCount, gist.MaxReads, versionHistory)
	if err != nil {
		return fmt.Errorf("failed to create gist: %w", err)
	}

	return nil
}

func (r *Repository) GetGist(ctx context.Context, id uuid.UUID) (*securegist.Gist, error) {
	query := `
		SELECT id, metadata, created_at, expiration_date, read_count, max_reads, version_history
		FROM gists WHERE id = ?`

	var (
		rawID         string
		rawMetadata   string
		rawCreatedAt  string
		rawExpiration sql.NullString
		rawVersions   sql.NullString
		gist          securegist.Gist
	)

	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&rawID, &rawMetadata, &rawCreatedAt, &rawExpiration,
		&gist.ReadCount, &gist.MaxReads, &rawVersions)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, securegist.ErrGistNotFound
		}
		return nil, fmt.Errorf("failed to get gist: %w", err)
	}

	gist.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gist id: %w", err)
	}
	if err := json.Unmarshal([]byte(rawMetadata), &gist.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	gist.CreatedAt, err = parseTime(rawCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rawExpiration.Valid {
		t, err := parseTime(rawExpiration.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse expiration_date: %w", err)
		}
		gist.ExpirationDate = &t
	}
	if rawVersions.Valid {
		if err := json.Unmarshal([]byte(rawVersions.String), &gist.VersionHistory); err != nil {
			return nil, fmt.Errorf("failed to decode version history: %w", err)
		}
	}

	return &gist, nil
}

// IncrementReadCount runs the check and the increment as one conditional
// UPDATE so concurrent reads never overdraw the budget.
func (r *Repository) IncrementReadCount(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE gists SET read_count = read_count + 1
		WHERE id = ? AND read_count < max_reads
		RETURNING read_count`

	var readCount int
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(&readCount)
	if err == nil {
		return readCount, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to increment read count: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM gists WHERE id = ? LIMIT 1`, id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, securegist.ErrGistNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment read count: %w", err)
	}
	return 0, securegist.ErrGistGone
}

func (r *Repository) DeleteGist(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM gists WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete gist: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete gist: %w", err)
	}
	if affected == 0 {
		return securegist.ErrGistNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}
