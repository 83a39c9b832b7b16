package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinIOConfig holds the connection settings for an S3 compatible endpoint.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinIO stores originals in a single bucket.
type MinIO struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewMinIO connects to the endpoint and makes sure the bucket exists.
func NewMinIO(ctx context.Context, cfg MinIOConfig, logger *zap.Logger) (*MinIO, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	m := &MinIO{client: client, bucket: cfg.Bucket, logger: logger}
	if err := m.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	logger.Info("blob store ready", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))
	return m, nil
}

func (m *MinIO) ensureBucket(ctx context.Context, region string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", m.bucket, err)
	}
	m.logger.Info("created bucket", zap.String("bucket", m.bucket))
	return nil
}

// Put uploads the object.
func (m *MinIO) Put(ctx context.Context, key string, obj Object) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(obj.Data), int64(len(obj.Data)),
		minio.PutObjectOptions{ContentType: obj.ContentType})
	if err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", m.bucket, key, err)
	}
	return nil
}

// Get downloads the object.
func (m *MinIO) Get(ctx context.Context, key string) (*Object, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", m.bucket, key, err)
	}
	defer func() { _ = obj.Close() }()

	// GetObject is lazy; Stat surfaces a missing key.
	stat, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat %s/%s: %w", m.bucket, key, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", m.bucket, key, err)
	}
	return &Object{Data: data, ContentType: stat.ContentType}, nil
}
