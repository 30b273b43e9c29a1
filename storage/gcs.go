package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS publishes artifacts to a Google Cloud Storage bucket and signs
// V4 GET URLs with the service-account key the client was built with.
type GCS struct {
	client *gcstorage.Client
	bucket string
}

// NewGCS builds a GCS backend. accessInfo keys: bucket (required),
// credentialsJSON (base64-encoded service account key; falls back to
// ambient credentials when absent).
func NewGCS(accessInfo map[string]string) (*GCS, error) {
	bucket := accessInfo["bucket"]
	if bucket == "" {
		return nil, fmt.Errorf("missing required accessInfo key: bucket")
	}

	var opts []option.ClientOption
	if encoded := accessInfo["credentialsJSON"]; encoded != "" {
		credentialsJSON, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			credentialsJSON = []byte(encoded)
		}
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}

	client, err := gcstorage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}

	return &GCS{client: client, bucket: bucket}, nil
}

// Put streams the local file into the bucket under key.
func (g *GCS) Put(ctx context.Context, localPath, key string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	obj := g.client.Bucket(g.bucket).Object(key)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentTypeForFormat(formatFromKey(key))

	if _, err := io.Copy(wc, src); err != nil {
		wc.Close()
		return fmt.Errorf("io.Copy: %w", err)
	}

	// Close completes the upload; errors surface here.
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}
	return nil
}

// SignedURL mints a V4 signed GET URL valid for ttl.
func (g *GCS) SignedURL(_ context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	url, err := g.client.Bucket(g.bucket).SignedURL(key, &gcstorage.SignedURLOptions{
		Scheme:  gcstorage.SigningSchemeV4,
		Method:  "GET",
		Expires: expiresAt,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s: %w", key, err)
	}
	return url, expiresAt, nil
}
