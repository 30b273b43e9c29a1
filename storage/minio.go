package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Minio publishes artifacts to a MinIO or other S3-compatible store
// with native presigned GET support.
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio builds a MinIO backend. accessInfo keys: endpoint, bucket,
// accessKey, secretKey (required); useSSL ("true"/"false"), region
// (optional).
func NewMinio(accessInfo map[string]string) (*Minio, error) {
	endpoint := accessInfo["endpoint"]
	bucket := accessInfo["bucket"]
	if endpoint == "" || bucket == "" {
		return nil, fmt.Errorf("missing required accessInfo keys: endpoint, bucket")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessInfo["accessKey"], accessInfo["secretKey"], ""),
		Secure: strings.EqualFold(accessInfo["useSSL"], "true"),
		Region: accessInfo["region"],
	})
	if err != nil {
		return nil, fmt.Errorf("minio connection: %w", err)
	}

	return &Minio{client: client, bucket: bucket}, nil
}

// Put uploads the local file under key.
func (m *Minio) Put(ctx context.Context, localPath, key string) error {
	_, err := m.client.FPutObject(ctx, m.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentTypeForFormat(formatFromKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", key, m.bucket, err)
	}
	return nil
}

// SignedURL mints a presigned GET URL valid for ttl.
func (m *Minio) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	url, err := m.client.PresignedGetObject(ctx, m.bucket, key, ttl, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign %s: %w", key, err)
	}
	return url.String(), expiresAt, nil
}
