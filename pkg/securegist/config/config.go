package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/securegist/securegist/pkg/securegist"
	memoryrepo "github.com/securegist/securegist/pkg/securegist/repo/memory"
	postgresrepo "github.com/securegist/securegist/pkg/securegist/repo/postgres"
	sqliterepo "github.com/securegist/securegist/pkg/securegist/repo/sqlite"
	memorystorage "github.com/securegist/securegist/pkg/securegist/storage/memory"
	s3storage "github.com/securegist/securegist/pkg/securegist/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		StorageType:  "memory",
		CORSAllowedOrigins: []string{
			"http://localhost",
			"http://localhost:80",
			"http://localhost:5173",
			"http://localhost:3000",
		},
		UploadMaxBytes:   securegist.DefaultUploadMaxBytes,
		UploadGrantTTL:   securegist.DefaultGrantTTL,
		DownloadGrantTTL: securegist.DefaultGrantTTL,
	}
}

// ServerConfig represents server configuration for the securegist service.
// It is read once at process start and treated as immutable afterwards.
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres", "sqlite"

	// Object storage configuration
	StorageType      string // "memory", "s3"
	S3Bucket         string
	S3Region         string
	S3Endpoint       string // internal service-to-storage endpoint
	S3PublicEndpoint string // externally reachable endpoint for presigned URLs
	S3AccessKeyID    string
	S3SecretKey      string
	S3UsePathStyle   bool
	S3CreateBucket   bool

	// API surface
	CORSAllowedOrigins []string

	// Grant policy
	UploadMaxBytes   int64
	UploadGrantTTL   time.Duration
	DownloadGrantTTL time.Duration
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case "memory":
	case "postgres", "sqlite":
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required when using %s", c.DatabaseType)
		}
	default:
		return errors.New("database_type must be 'memory', 'postgres' or 'sqlite'")
	}

	switch c.StorageType {
	case "memory":
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("s3 bucket name is required when using s3 storage")
		}
	default:
		return errors.New("storage_type must be 'memory' or 's3'")
	}

	if c.UploadMaxBytes <= 0 {
		return errors.New("upload size ceiling must be positive")
	}
	if c.UploadGrantTTL <= 0 || c.DownloadGrantTTL <= 0 {
		return errors.New("grant TTLs must be positive")
	}

	return nil
}

// BuildService assembles the repository, the blob store, and the lifecycle
// engine from the configuration. SQL-backed repositories get their schema
// created here, before the first request.
func (c *ServerConfig) BuildService(ctx context.Context) (securegist.Service, error) {
	repo, err := c.buildRepository(ctx)
	if err != nil {
		return nil, err
	}

	store, err := c.buildBlobStore()
	if err != nil {
		return nil, err
	}

	return securegist.New(
		securegist.WithRepository(repo),
		securegist.WithBlobStore(store),
		securegist.WithUploadSizeLimit(c.UploadMaxBytes),
		securegist.WithGrantTTLs(c.UploadGrantTTL, c.DownloadGrantTTL),
	)
}

func (c *ServerConfig) buildRepository(ctx context.Context) (securegist.Repository, error) {
	switch c.DatabaseType {
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		repo := postgresrepo.NewWithPool(pool)
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	case "sqlite":
		return sqliterepo.Open(strings.TrimPrefix(c.DatabaseURL, "sqlite://"))
	default:
		return memoryrepo.New(), nil
	}
}

func (c *ServerConfig) buildBlobStore() (securegist.BlobStore, error) {
	if c.StorageType != "s3" {
		return memorystorage.New(), nil
	}

	return s3storage.New(s3storage.Config{
		Region:                 c.S3Region,
		Bucket:                 c.S3Bucket,
		AccessKeyID:            c.S3AccessKeyID,
		SecretAccessKey:        c.S3SecretKey,
		Endpoint:               c.S3Endpoint,
		PublicEndpoint:         c.S3PublicEndpoint,
		UsePathStyle:           c.S3UsePathStyle,
		CreateBucketIfNotExist: c.S3CreateBucket,
	})
}
