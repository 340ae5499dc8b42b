package storage

import (
	"context"
	"io"
	"time"
)

// PresignedURL is a time-limited URL for direct object access.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ObjectStore persists uploaded model files and generated G-code
// artifacts. Keys are returned by the store and opaque to callers.
type ObjectStore interface {
	StoreModel(ctx context.Context, tenantID, fileName string, r io.Reader, size int64) (string, error)
	FetchModel(ctx context.Context, fileKey string) ([]byte, error)
	StoreGCode(ctx context.Context, tenantID, fileName string, data []byte) (string, error)
	ModelDownloadURL(ctx context.Context, fileKey string) (*PresignedURL, error)
	GCodeDownloadURL(ctx context.Context, fileKey string) (*PresignedURL, error)
	DeleteModel(ctx context.Context, fileKey string) error
	MaxFileSize() int64
}
