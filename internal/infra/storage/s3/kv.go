package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"rentme-app/internal/app/persist"
)

const (
	contentType       = "application/json"
	bucketInitTimeout = 10 * time.Second
)

type Config struct {
	Endpoint  string
	UseSSL    bool
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	// Region skips the bucket location lookup when set.
	Region    string
}

// KV stores each key as a JSON object in an S3-compatible bucket.
type KV struct {
	bucket string
	prefix string
	client *minio.Client
	logger *slog.Logger

	bucketMu    sync.Mutex
	bucketReady bool
}

var _ persist.Storage = (*KV)(nil)

func NewKV(cfg Config, logger *slog.Logger) (*KV, error) {
	cleanEndpoint := strings.TrimSpace(cfg.Endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
		Region: strings.TrimSpace(cfg.Region),
	}
	minioClient, err := minio.New(parseEndpoint(cleanEndpoint), opts)
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KV{
		bucket: bucket,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		client: minioClient,
		logger: logger,
	}, nil
}

func (s *KV) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, false, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("s3: get object: %w", err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("s3: read object: %w", err)
	}
	return data, true, nil
}

func (s *KV) SetItem(ctx context.Context, key string, value []byte) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	objectKey := s.objectKey(key)
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("s3: put object: %w", err)
	}
	s.logger.Debug("s3 snapshot stored", "bucket", s.bucket, "key", objectKey, "size", len(value))
	return nil
}

func (s *KV) RemoveItem(ctx context.Context, key string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, s.objectKey(key), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("s3: remove object: %w", err)
	}
	return nil
}

// ensureBucket creates the bucket on first use. Failures are not cached; the next
// call retries. The check runs detached from the caller's cancellation.
func (s *KV) ensureBucket(ctx context.Context) error {
	s.bucketMu.Lock()
	defer s.bucketMu.Unlock()
	if s.bucketReady {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bucketInitTimeout)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		s.logger.Warn("s3 bucket check failed", "bucket", s.bucket, "error", err)
		return fmt.Errorf("s3: check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("s3: create bucket: %w", err)
		}
		s.logger.Info("s3 bucket created", "bucket", s.bucket)
	}
	s.bucketReady = true
	return nil
}

func (s *KV) objectKey(key string) string {
	name := strings.Trim(strings.TrimSpace(key), "/") + ".json"
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func isNotFound(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}
