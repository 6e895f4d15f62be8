package storage

import (
	"context"
	"io"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// Upload writes an object. Object keys are paths within the single
	// application bucket (e.g. "ex/...", "covers/...", "certificates/<uid>/...",
	// "avatars/<uid>/...").
	Upload(ctx context.Context, objectKey string, contentType string, body io.Reader) error

	// PublicURL returns the stable, publicly reachable URL for an object.
	PublicURL(objectKey string) string

	// List returns the object names (relative to the prefix) under the
	// given prefix, at most limit entries.
	List(ctx context.Context, prefix string, limit int32) ([]string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading/viewing an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}
