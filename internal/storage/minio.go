package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"printcalc_backend/platform/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"
)

// PresignedURLTTL is the expiration time for presigned download URLs.
const PresignedURLTTL = 15 * time.Minute

// MinIOStore implements ObjectStore against MinIO. Models and G-code live
// in separate buckets so retention policies can differ.
type MinIOStore struct {
	client       *minio.Client
	bucketModels string
	bucketGCode  string
	maxFileSize  int64
}

// NewMinIOStore creates the store and ensures both buckets exist.
func NewMinIOStore(ctx context.Context, cfg config.MinIOConfig) (*MinIOStore, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	s := &MinIOStore{
		client:       client,
		bucketModels: cfg.GetMinIOBucketModels(),
		bucketGCode:  cfg.GetMinIOBucketGCode(),
		maxFileSize:  cfg.GetMinIOMaxFileSize(),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, bucket := range []string{s.bucketModels, s.bucketGCode} {
		bucket := bucket
		g.Go(func() error {
			return s.ensureBucket(gctx, bucket)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *MinIOStore) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

// StoreModel uploads an uploaded model file under the tenant's prefix and
// returns the generated file key.
func (s *MinIOStore) StoreModel(ctx context.Context, tenantID, fileName string, r io.Reader, size int64) (string, error) {
	if size > s.maxFileSize {
		return "", fmt.Errorf("file size %d exceeds maximum of %d bytes", size, s.maxFileSize)
	}

	fileKey := buildFileKey(tenantID, fileName)
	_, err := s.client.PutObject(ctx, s.bucketModels, fileKey, r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload model %s: %w", fileKey, err)
	}
	return fileKey, nil
}

// FetchModel reads a staged model back into memory for a worker run.
func (s *MinIOStore) FetchModel(ctx context.Context, fileKey string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucketModels, fileKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get model %s: %w", fileKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", fileKey, err)
	}
	return data, nil
}

// StoreGCode archives a generated G-code artifact.
func (s *MinIOStore) StoreGCode(ctx context.Context, tenantID, fileName string, data []byte) (string, error) {
	fileKey := buildFileKey(tenantID, fileName)
	_, err := s.client.PutObject(ctx, s.bucketGCode, fileKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/x-gcode",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload gcode %s: %w", fileKey, err)
	}
	return fileKey, nil
}

// ModelDownloadURL creates a presigned URL for downloading a model file.
func (s *MinIOStore) ModelDownloadURL(ctx context.Context, fileKey string) (*PresignedURL, error) {
	return s.downloadURL(ctx, s.bucketModels, fileKey)
}

// GCodeDownloadURL creates a presigned URL for downloading a G-code artifact.
func (s *MinIOStore) GCodeDownloadURL(ctx context.Context, fileKey string) (*PresignedURL, error) {
	return s.downloadURL(ctx, s.bucketGCode, fileKey)
}

func (s *MinIOStore) downloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error) {
	expiresAt := time.Now().Add(PresignedURLTTL)
	presignedURL, err := s.client.PresignedGetObject(ctx, bucket, fileKey, PresignedURLTTL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return &PresignedURL{
		URL:       presignedURL.String(),
		FileKey:   fileKey,
		ExpiresAt: expiresAt,
	}, nil
}

// DeleteModel removes a model file from storage.
func (s *MinIOStore) DeleteModel(ctx context.Context, fileKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucketModels, fileKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", fileKey, err)
	}
	return nil
}

// MaxFileSize returns the configured maximum upload size in bytes.
func (s *MinIOStore) MaxFileSize() int64 { return s.maxFileSize }

// buildFileKey prefixes the object with the tenant and a short random
// suffix so repeated uploads of the same filename never collide.
func buildFileKey(tenantID, fileName string) string {
	ext := path.Ext(fileName)
	baseName := strings.TrimSuffix(fileName, ext)
	uniqueFileName := fmt.Sprintf("%s_%s%s", baseName, uuid.New().String()[:8], ext)
	return filepath.ToSlash(filepath.Join(tenantID, uniqueFileName))
}

var _ ObjectStore = (*MinIOStore)(nil)
