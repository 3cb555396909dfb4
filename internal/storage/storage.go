package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/config"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/metrics"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// Archive keeps a copy of finished downloads in object storage
type Archive struct {
	client     *minio.Client
	bucketName string
}

// New creates a new archive client and ensures the bucket exists
func New(ctx context.Context, cfg config.StorageConfig) (*Archive, error) {
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

	return &Archive{
		client:     client,
		bucketName: cfg.BucketName,
	}, nil
}

// Bucket returns the bucket name
func (a *Archive) Bucket() string {
	return a.bucketName
}

// ObjectKey returns "{kind}/{mediaID}/{file name}" for a record
func ObjectKey(record *models.DownloadRecord) string {
	return path.Join(string(record.Kind), record.MediaID, filepath.Base(record.OutputPath))
}

// UploadFile uploads a local file under objectName and returns its size
func (a *Archive) UploadFile(ctx context.Context, objectName, filePath string) (int64, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		metrics.RecordStorageOperation("upload", "failed", 0)
		return 0, fmt.Errorf("failed to stat %s: %w", filePath, err)
	}

	_, err = a.client.FPutObject(ctx, a.bucketName, objectName, filePath, minio.PutObjectOptions{
		ContentType: getContentType(filePath),
	})
	if err != nil {
		metrics.RecordStorageOperation("upload", "failed", 0)
		return 0, fmt.Errorf("failed to upload file: %w", err)
	}

	metrics.RecordStorageOperation("upload", "success", info.Size())
	return info.Size(), nil
}

// GetURL returns a presigned URL for an archived object
func (a *Archive) GetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	url, err := a.client.PresignedGetObject(ctx, a.bucketName, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate URL: %w", err)
	}

	return url.String(), nil
}

// Delete removes an archived object
func (a *Archive) Delete(ctx context.Context, objectName string) error {
	err := a.client.RemoveObject(ctx, a.bucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// getContentType returns the content type based on file extension
func getContentType(filePath string) string {
	switch filepath.Ext(filePath) {
	case ".mp4", ".m4s":
		return "video/mp4"
	case ".ts":
		return "video/mp2t"
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	default:
		return "application/octet-stream"
	}
}
