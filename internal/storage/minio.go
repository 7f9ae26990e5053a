package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"custodyapi/internal/config"
)

// MinIO stores evidence files and document renderings in one S3-compatible bucket.
//
// With a retention period configured the bucket is created with object locking
// and every object is written under GOVERNANCE retention, so ordinary
// credentials can neither overwrite nor delete content once a hash points at it.
// Delete bypasses governance because it only removes uploads whose database
// record was never written.
//
// It is safe for concurrent use by multiple goroutines.
type MinIO struct {
	client    *minio.Client
	bucket    string
	retention time.Duration
	now       func() time.Time
}

// NewMinIO connects to the configured endpoint and ensures the bucket exists.
func NewMinIO(ctx context.Context, cfg config.MinIOConfig) (*MinIO, error) {
	switch {
	case cfg.Endpoint == "":
		return nil, fmt.Errorf("minio endpoint is required")
	case cfg.AccessKey == "" || cfg.SecretKey == "":
		return nil, fmt.Errorf("minio credentials are required")
	case cfg.Bucket == "":
		return nil, fmt.Errorf("minio bucket is required")
	case cfg.RetentionDays < 0:
		return nil, fmt.Errorf("minio retention days must not be negative")
	}

	transport, err := minio.DefaultTransport(cfg.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("create minio transport: %w", err)
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Transport: otelhttp.NewTransport(transport),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	m := &MinIO{
		client:    cli,
		bucket:    cfg.Bucket,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		now:       time.Now,
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// ensureBucket creates the bucket when missing. Object locking can only be
// enabled at creation, so an existing bucket is used as is.
func (m *MinIO) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	opts := minio.MakeBucketOptions{ObjectLocking: m.retention > 0}
	if err := m.client.MakeBucket(ctx, m.bucket, opts); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (m *MinIO) putOptions(opt PutObjectOptions) minio.PutObjectOptions {
	po := minio.PutObjectOptions{
		ContentType:  opt.ContentType,
		UserMetadata: opt.Metadata,
	}
	if m.retention > 0 {
		po.Mode = minio.Governance
		po.RetainUntilDate = m.now().UTC().Add(m.retention)
		// Locked buckets reject writes without an integrity header.
		po.SendContentMd5 = true
	}
	return po
}

// Put streams r into the bucket under key.
func (m *MinIO) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	info, err := m.client.PutObject(ctx, m.bucket, key, r, opt.Size, m.putOptions(opt))
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return ObjectInfo{
		Key:         key,
		Size:        info.Size,
		ETag:        info.ETag,
		ContentType: opt.ContentType,
		// PutObject does not report a modification time
		LastModified: m.now(),
		Metadata:     opt.Metadata,
	}, nil
}

// Get stats the object first so a missing key maps to ErrObjectNotFound before
// any content is streamed.
func (m *MinIO) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	st, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, mapMinIOError(err)
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, mapMinIOError(err)
	}
	return obj, ObjectInfo{
		Key:          key,
		Size:         st.Size,
		ETag:         st.ETag,
		ContentType:  st.ContentType,
		LastModified: st.LastModified,
		Metadata:     st.UserMetadata,
	}, nil
}

// Delete removes a freshly uploaded object whose record was never committed.
func (m *MinIO) Delete(ctx context.Context, key string) error {
	err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{
		GovernanceBypass: m.retention > 0,
	})
	if err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func mapMinIOError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	}
	return err
}
