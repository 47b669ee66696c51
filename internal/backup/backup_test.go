package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

var errTestS3 = errors.New("test s3 error")

// memoryBucket is an in-memory API with one object per key.
type memoryBucket struct {
	objects  map[string][]byte
	modified map[string]time.Time
	clock    time.Time
	err      error
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{
		objects:  make(map[string][]byte),
		modified: make(map[string]time.Time),
		clock:    time.Unix(1700000000, 0),
	}
}

func (b *memoryBucket) PutObject(
	_ context.Context,
	in *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	if b.err != nil {
		return nil, b.err
	}

	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	key := aws.ToString(in.Key)
	b.clock = b.clock.Add(time.Second)
	b.objects[key] = data
	b.modified[key] = b.clock

	return new(s3.PutObjectOutput), nil
}

func (b *memoryBucket) GetObject(
	_ context.Context,
	in *s3.GetObjectInput,
	_ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	data, ok := b.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errTestS3
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (b *memoryBucket) ListObjectsV2(
	_ context.Context,
	in *s3.ListObjectsV2Input,
	_ ...func(*s3.Options),
) (*s3.ListObjectsV2Output, error) {
	if b.err != nil {
		return nil, b.err
	}

	keys := make([]string, 0, len(b.objects))
	for key := range b.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	output := new(s3.ListObjectsV2Output)
	for _, key := range keys {
		output.Contents = append(output.Contents, types.Object{
			Key:          aws.String(key),
			LastModified: aws.Time(b.modified[key]),
		})
	}

	return output, nil
}

func TestNewStore(t *testing.T) {
	t.Parallel()

	_, err := NewStore(newMemoryBucket(), "", "x")
	require.ErrorIs(t, err, ErrBucketRequired)

	s, err := NewStore(newMemoryBucket(), "bucket", "")
	require.NoError(t, err)
	require.Equal(t, "backups/catpoint-1700000000000000000.json", s.Key(time.Unix(1700000000, 0)))

	s, err = NewStore(newMemoryBucket(), "bucket", "/home/cat/")
	require.NoError(t, err)
	require.Equal(t, "home/cat/catpoint-5000000000.json", s.Key(time.Unix(5, 0)))
}

func TestStore_UploadAndDownload(t *testing.T) {
	t.Parallel()

	bucket := newMemoryBucket()
	s, err := NewStore(bucket, "bucket", "")
	require.NoError(t, err)

	ctx := context.Background()

	_, err = s.LatestKey(ctx)
	require.ErrorIs(t, err, ErrNoBackups)

	first := &domain.Snapshot{
		Sensors:      []*domain.Sensor{domain.NewSensor("front", domain.SensorTypeDoor)},
		AlarmStatus:  domain.AlarmNone,
		ArmingStatus: domain.ArmingArmedHome,
	}

	s.now = func() time.Time { return time.Unix(100, 0) }
	key, err := s.Upload(ctx, first)
	require.NoError(t, err)
	require.Equal(t, "backups/catpoint-100000000000.json", key)

	second := first.Clone()
	second.AlarmStatus = domain.AlarmActive

	s.now = func() time.Time { return time.Unix(99, 0) }
	key, err = s.Upload(ctx, second)
	require.NoError(t, err)

	// The most recently written object wins regardless of its name.
	latest, err := s.LatestKey(ctx)
	require.NoError(t, err)
	require.Equal(t, key, latest)

	restored, err := s.Download(ctx, latest)
	require.NoError(t, err)
	require.Equal(t, domain.AlarmActive, restored.AlarmStatus)
	require.Equal(t, domain.ArmingArmedHome, restored.ArmingStatus)
	require.Equal(t, "front", restored.Sensors[0].ID)

	_, err = s.Download(ctx, "backups/missing.json")
	require.ErrorIs(t, err, errTestS3)
}

// TestStore_UploadWithinOneSecond ensures backups taken in the same second keep separate keys.
func TestStore_UploadWithinOneSecond(t *testing.T) {
	t.Parallel()

	bucket := newMemoryBucket()
	s, err := NewStore(bucket, "bucket", "")
	require.NoError(t, err)

	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	s.now = func() time.Time { return base }
	first, err := s.Upload(ctx, domain.NewSnapshot())
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(time.Millisecond) }
	second, err := s.Upload(ctx, domain.NewSnapshot())
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.Len(t, bucket.objects, 2)

	latest, err := s.LatestKey(ctx)
	require.NoError(t, err)
	require.Equal(t, second, latest)
}

func TestStore_Failures(t *testing.T) {
	t.Parallel()

	bucket := newMemoryBucket()
	bucket.err = errTestS3

	s, err := NewStore(bucket, "bucket", "")
	require.NoError(t, err)

	_, err = s.Upload(context.Background(), domain.NewSnapshot())
	require.ErrorIs(t, err, errTestS3)

	_, err = s.LatestKey(context.Background())
	require.ErrorIs(t, err, errTestS3)
}
