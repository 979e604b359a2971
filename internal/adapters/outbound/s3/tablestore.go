// Package s3 stores the sign-up sheet as a single CSV object in AWS S3.
//
// Writes are conditional on the object's ETag. When another writer replaced
// the sheet since it was read, the put fails with a version conflict and the
// caller re-reads before trying again, so concurrent submits cannot silently
// drop each other's rows.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
	"github.com/raneja-ux/potluck-app/internal/ports/outbound"
)

// s3API defines the subset of S3 operations needed by the TableStore.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Compile-time checks that TableStore implements the outbound ports.
var (
	_ outbound.TableStore          = (*TableStore)(nil)
	_ outbound.VersionedTableStore = (*TableStore)(nil)
	_ outbound.Pinger              = (*TableStore)(nil)
)

// Config holds the sheet object location.
type Config struct {
	// Bucket is the S3 bucket holding the sheet
	Bucket string
	// Key is the object key of the sheet CSV
	Key string
}

// ConfigDefaults returns defaults for everything but the bucket.
func ConfigDefaults() Config {
	return Config{
		Key: "entries.csv",
	}
}

// TableStore implements the TableStore and VersionedTableStore ports on S3.
type TableStore struct {
	client s3API
	bucket string
	key    string
	logger *slog.Logger
}

// NewTableStore creates a new S3 table store with the given AWS config.
func NewTableStore(awsCfg aws.Config, cfg Config, logger *slog.Logger) (*TableStore, error) {
	return NewTableStoreWithOptions(awsCfg, cfg, logger)
}

// NewTableStoreWithOptions creates a new S3 table store with optional S3
// client options, such as a custom endpoint for S3-compatible stores.
func NewTableStoreWithOptions(awsCfg aws.Config, cfg Config, logger *slog.Logger, optFns ...func(*s3.Options)) (*TableStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Key == "" {
		cfg.Key = ConfigDefaults().Key
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TableStore{
		client: s3.NewFromConfig(awsCfg, optFns...),
		bucket: cfg.Bucket,
		key:    cfg.Key,
		logger: logger.With("component", "s3-table-store"),
	}, nil
}

// Read returns the whole sheet. S3 serves the current object, so the
// freshness hint is not used.
func (s *TableStore) Read(ctx context.Context, _ time.Duration) ([]entity.Entry, error) {
	entries, _, err := s.ReadVersioned(ctx)
	return entries, err
}

// ReadVersioned returns the sheet together with its current ETag. A missing
// object reads as an empty sheet with an empty version; writing that version
// back becomes a create-only put.
func (s *TableStore) ReadVersioned(ctx context.Context) ([]entity.Entry, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to get sheet object %s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	entries, err := decodeEntries(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode sheet object %s/%s: %w", s.bucket, s.key, err)
	}
	return entries, aws.ToString(out.ETag), nil
}

// Write replaces the sheet unconditionally.
func (s *TableStore) Write(ctx context.Context, entries []entity.Entry) error {
	return s.put(ctx, entries, "", false)
}

// WriteVersioned replaces the sheet only if it still carries the given ETag.
// An empty version writes only if the object does not exist yet. A failed
// condition is reported as outbound.ErrVersionConflict.
func (s *TableStore) WriteVersioned(ctx context.Context, entries []entity.Entry, version string) error {
	return s.put(ctx, entries, version, true)
}

func (s *TableStore) put(ctx context.Context, entries []entity.Entry, version string, conditional bool) error {
	data, err := encodeEntries(entries)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	}
	if conditional {
		if version == "" {
			input.IfNoneMatch = aws.String("*")
		} else {
			input.IfMatch = aws.String(version)
		}
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		if conditional && isPreconditionFailed(err) {
			return outbound.ErrVersionConflict
		}
		return fmt.Errorf("failed to put sheet object %s/%s: %w", s.bucket, s.key, err)
	}

	s.logger.Debug("wrote sheet object", "bucket", s.bucket, "key", s.key, "rows", len(entries))
	return nil
}

// InvalidateCache is a no-op; reads always fetch the current object.
func (s *TableStore) InvalidateCache(_ context.Context) {}

// Ping checks that the bucket answers. A sheet object that does not exist
// yet still counts as reachable.
func (s *TableStore) Ping(ctx context.Context) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("failed to head sheet object %s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

// isPreconditionFailed checks for a failed conditional write (HTTP 412).
func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "PreconditionFailed" || apiErr.ErrorCode() == "412"
	}
	return false
}

// isNoSuchKey checks whether the sheet object does not exist.
func isNoSuchKey(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
