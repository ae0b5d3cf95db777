package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/therealutkarshpriyadarshi/mediaconv/internal/config"
	"github.com/therealutkarshpriyadarshi/mediaconv/internal/metrics"
)

// Archives above this size are uploaded in parts of this size
const DefaultPartSize = 10 * 1024 * 1024

// Storage uploads export archives to object storage
type Storage struct {
	client     *minio.Client
	bucketName string
	prefix     string
}

// New creates a new storage client and ensures the bucket exists
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: cfg.BucketName,
		prefix:     cfg.Prefix,
	}, nil
}

// Bucket returns the bucket archives are written to
func (s *Storage) Bucket() string {
	return s.bucketName
}

// ObjectKey places name under the configured prefix
func (s *Storage) ObjectKey(name string) string {
	return objectKey(s.prefix, name)
}

// Upload uploads a stream to storage
func (s *Storage) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
		PartSize:    DefaultPartSize,
	})
	if err != nil {
		metrics.RecordStorageOperation("upload", "failed", 0)
		return fmt.Errorf("failed to upload object: %w", err)
	}

	metrics.RecordStorageOperation("upload", "success", size)
	return nil
}

// UploadFile uploads a local file under the configured prefix and
// returns the object key it was stored at.
func (s *Storage) UploadFile(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	key := s.ObjectKey(filepath.Base(filePath))
	if err := s.Upload(ctx, key, file, info.Size(), getContentType(filePath)); err != nil {
		return "", err
	}
	return key, nil
}

// GetURL returns a presigned download URL for an object
func (s *Storage) GetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucketName, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate URL: %w", err)
	}

	return url.String(), nil
}

func objectKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(strings.TrimSuffix(prefix, "/"), name)
}

// getContentType returns the content type based on file extension
func getContentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".zip":
		return "application/zip"
	case ".wav":
		return "audio/wav"
	case ".mp4":
		return "video/mp4"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
