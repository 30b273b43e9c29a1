// Package storage publishes finished artifacts to an object store and
// mints time-limited download URLs. Backends implement a two-call
// capability: put bytes under a key, sign the key for a TTL.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vidpress/logger"
	"vidpress/models"
)

// Location identifies a published artifact: its store key, a signed
// retrieval URL and the URL's expiry. Never mutated after creation.
type Location struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

// Backend is the object-store capability. Implementations must treat
// key as opaque and must not retry internally: a failed publish is a
// failed request, the caller owns that decision.
type Backend interface {
	Put(ctx context.Context, localPath, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error)
}

// Publish uploads localPath under key and mints a signed URL valid for
// ttl. Either step failing surfaces as PUBLISH_FAILED; a completed but
// unpublished artifact must not be reported as success.
func Publish(ctx context.Context, b Backend, localPath, key string, ttl time.Duration) (*Location, error) {
	if err := b.Put(ctx, localPath, key); err != nil {
		return nil, models.NewCompressionError(models.CodePublishFailed,
			"failed to store the compressed artifact", err)
	}

	url, expiresAt, err := b.SignedURL(ctx, key, ttl)
	if err != nil {
		return nil, models.NewCompressionError(models.CodePublishFailed,
			"failed to mint a download link", err)
	}

	logger.Infof("published artifact %s, link valid until %s", key, expiresAt.Format(time.RFC3339))
	return &Location{Key: key, URL: url, ExpiresAt: expiresAt}, nil
}

// New constructs the backend selected by name. accessInfo carries the
// backend's credentials and settings, typically loaded from the
// credentials store.
func New(name string, accessInfo map[string]string) (Backend, error) {
	switch name {
	case "gcs":
		return NewGCS(accessInfo)
	case "s3":
		return NewS3(accessInfo)
	case "minio":
		return NewMinio(accessInfo)
	case "sftp":
		return NewSFTP(accessInfo)
	case "direct":
		return NewDirectServe(accessInfo)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", name)
	}
}

// contentTypeForFormat maps a container format to the MIME type the
// artifact is stored with.
func contentTypeForFormat(format string) string {
	switch strings.ToLower(format) {
	case "mp4":
		return "video/mp4"
	case "mov":
		return "video/quicktime"
	case "mkv":
		return "video/x-matroska"
	case "webm":
		return "video/webm"
	case "avi":
		return "video/x-msvideo"
	default:
		return "application/octet-stream"
	}
}

// formatFromKey recovers the container format from a storage key's
// extension for content-type tagging.
func formatFromKey(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		return key[i+1:]
	}
	return ""
}
