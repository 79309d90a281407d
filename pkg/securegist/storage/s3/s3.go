package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/securegist/securegist/pkg/securegist"
)

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	PublicEndpoint  string // Externally reachable endpoint substituted into minted URLs
	UsePathStyle    bool   // Use path-style addressing (default: false)

	// MinIO-specific options
	CreateBucketIfNotExist bool // Create bucket if it doesn't exist
}

// Backend is an AWS S3 implementation of the securegist.BlobStore interface.
// It only mints scoped, short-lived credentials and deletes objects; uploads
// and downloads happen directly between the client and storage.
type Backend struct {
	client         *s3.Client
	presignClient  *s3.PresignClient
	bucket         string
	endpoint       string
	publicEndpoint string
}

// New creates a new S3 storage backend
func New(config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	if config.Region == "" {
		config.Region = "us-east-1" // Default region
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}

	// Add credentials if provided
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// Custom endpoint for S3-compatible services like MinIO
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		if config.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	presignClient := s3.NewPresignClient(s3Client)

	if config.CreateBucketIfNotExist {
		_, err := s3Client.HeadBucket(context.Background(), &s3.HeadBucketInput{
			Bucket: aws.String(config.Bucket),
		})

		if err != nil {
			_, err = s3Client.CreateBucket(context.Background(), &s3.CreateBucketInput{
				Bucket: aws.String(config.Bucket),
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create bucket: %w", err)
			}
		}
	}

	return &Backend{
		client:         s3Client,
		presignClient:  presignClient,
		bucket:         config.Bucket,
		endpoint:       config.Endpoint,
		publicEndpoint: config.PublicEndpoint,
	}, nil
}

// MintUploadGrant returns a presigned POST credential for a single direct
// upload of at most maxSizeBytes, valid for ttl.
func (b *Backend) MintUploadGrant(ctx context.Context, key string, maxSizeBytes int64, ttl time.Duration) (*securegist.UploadGrant, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}

	result, err := b.presignClient.PresignPostObject(ctx, input, func(o *s3.PresignPostOptions) {
		o.Expires = ttl
		o.Conditions = []interface{}{
			[]interface{}{"content-length-range", 0, maxSizeBytes},
		}
	})
	if err != nil {
		return nil, b.wrapError("mint_upload_grant", key, err)
	}

	return &securegist.UploadGrant{
		URL:    b.rewriteEndpoint(result.URL),
		Fields: result.Values,
	}, nil
}

// MintDownloadGrant returns a presigned GET URL valid for ttl.
func (b *Backend) MintDownloadGrant(ctx context.Context, key string, ttl time.Duration) (string, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}

	result, err := b.presignClient.PresignGetObject(ctx, input,
		s3.WithPresignExpires(ttl))
	if err != nil {
		return "", b.wrapError("mint_download_grant", key, err)
	}

	return b.rewriteEndpoint(result.URL), nil
}

// Delete deletes the object at key
func (b *Backend) Delete(ctx context.Context, key string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}

	_, err := b.client.DeleteObject(ctx, input)
	if err != nil {
		return b.wrapError("delete", key, err)
	}

	return nil
}

// rewriteEndpoint substitutes the internal service-to-storage endpoint with
// the externally reachable one. Presigned URLs are handed to browsers, which
// cannot resolve the in-cluster address. Applied identically to both grant
// kinds; a pure string substitution.
func (b *Backend) rewriteEndpoint(url string) string {
	if b.endpoint == "" || b.publicEndpoint == "" {
		return url
	}
	if !strings.Contains(url, b.endpoint) {
		return url
	}
	return strings.Replace(url, b.endpoint, b.publicEndpoint, 1)
}

// wrapError folds any provider failure into a StorageError so that callers
// match on securegist.ErrStorageUnavailable and never see raw SDK errors.
func (b *Backend) wrapError(op, key string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		err = fmt.Errorf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return &securegist.StorageError{Bucket: b.bucket, Key: key, Op: op, Err: err}
}
