// Package backup uploads state snapshots to S3-compatible storage and fetches
// them back.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/wire"
)

const (
	keyPrefix   = "catpoint-"
	keyExt      = ".json"
	contentType = "application/json"
)

var (
	// ErrBucketRequired is returned when no bucket is configured.
	ErrBucketRequired = errors.New("backup bucket is required")
	// ErrNoBackups is returned when the bucket holds no snapshots under the prefix.
	ErrNoBackups = errors.New("no backups found")
)

// API is the subset of the S3 client used for backups.
type API interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds an S3 client from the backup settings. Static credentials
// are used when configured, otherwise the default AWS chain applies.
func NewS3Client(ctx context.Context, cfg *config.Backup) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Store writes and reads snapshots under bucket/prefix.
type Store struct {
	api    API
	bucket string
	prefix string
	now    func() time.Time
}

// NewStore creates a Store over api.
func NewStore(api API, bucket, prefix string) (*Store, error) {
	if bucket == "" {
		return nil, ErrBucketRequired
	}

	if prefix == "" {
		prefix = config.DefaultBackupPrefix
	}

	return &Store{
		api:    api,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}, nil
}

// Key returns the object key for a snapshot taken at t, named by Unix nanoseconds.
func (s *Store) Key(t time.Time) string {
	return path.Join(s.prefix, fmt.Sprintf("%s%d%s", keyPrefix, t.UnixNano(), keyExt))
}

// Upload stores snapshot and returns its object key.
func (s *Store) Upload(ctx context.Context, snapshot *domain.Snapshot) (string, error) {
	data, err := wire.MarshalSnapshot(snapshot)
	if err != nil {
		return "", err
	}

	key := s.Key(s.now())

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return key, nil
}

// LatestKey returns the key of the most recent snapshot under the prefix.
func (s *Store) LatestKey(ctx context.Context) (string, error) {
	var (
		latest   string
		modified time.Time
	)

	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + "/" + keyPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list backups: %w", err)
		}

		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if !strings.HasSuffix(key, keyExt) {
				continue
			}

			at := aws.ToTime(object.LastModified)
			if latest == "" || at.After(modified) || (at.Equal(modified) && key > latest) {
				latest, modified = key, at
			}
		}
	}

	if latest == "" {
		return "", ErrNoBackups
	}

	return latest, nil
}

// Download fetches the snapshot stored under key.
func (s *Store) Download(ctx context.Context, key string) (*domain.Snapshot, error) {
	output, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}

	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	return wire.UnmarshalSnapshot(data)
}
