package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidpress/logger"
)

// DirectServe writes artifacts under a local serve directory exposed
// by this process at /files/. The minted link has no signature; the
// TTL is enforced by the background pruner removing expired files.
// Meant for development and single-box deployments.
type DirectServe struct {
	baseDir string
	baseURL string
}

// NewDirectServe builds a direct-serve backend. accessInfo keys:
// baseDir and publicBaseURL (both required; main wires them from
// config for the default backend).
func NewDirectServe(accessInfo map[string]string) (*DirectServe, error) {
	baseDir := accessInfo["baseDir"]
	baseURL := accessInfo["publicBaseURL"]
	if baseDir == "" || baseURL == "" {
		return nil, fmt.Errorf("missing required accessInfo keys: baseDir, publicBaseURL")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create serve dir: %w", err)
	}
	return &DirectServe{
		baseDir: baseDir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Put copies the local file to baseDir/key.
func (d *DirectServe) Put(_ context.Context, localPath, key string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	fullPath := filepath.Join(d.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write to file %s: %w", fullPath, err)
	}
	return nil
}

// SignedURL returns baseURL/files/key. Expiry is enforced by Prune.
func (d *DirectServe) SignedURL(_ context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	return d.baseURL + "/files/" + key, time.Now().Add(ttl), nil
}

// Prune removes served artifacts older than maxAge, returning the
// number of files deleted. Called by the background cleanup routine so
// expired links stop resolving and the disk budget holds.
func (d *DirectServe) Prune(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	deleted := 0

	err := filepath.Walk(d.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				logger.Errorf("failed to prune %s: %v", path, err)
				return nil
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("prune walk: %w", err)
	}
	return deleted, nil
}
