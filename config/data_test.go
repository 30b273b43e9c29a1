package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	if GetMaxUploadBytes() != 200<<20 {
		t.Errorf("Expected 200MB default upload cap, got %d", GetMaxUploadBytes())
	}
	if GetTranscodeTimeout() != 60*time.Second {
		t.Errorf("Expected 60s default transcode timeout, got %v", GetTranscodeTimeout())
	}
	if GetConcurrency() != 3 {
		t.Errorf("Expected default concurrency 3, got %d", GetConcurrency())
	}
	if GetAdmissionWait() != 2*time.Second {
		t.Errorf("Expected 2s default admission wait, got %v", GetAdmissionWait())
	}
	if GetSignedURLTTL() != time.Hour {
		t.Errorf("Expected 1h default signed URL TTL, got %v", GetSignedURLTTL())
	}
	if GetStorageBackend() != "direct" {
		t.Errorf("Expected default backend direct, got %s", GetStorageBackend())
	}
	if GetPort() != "8080" {
		t.Errorf("Expected default port 8080, got %s", GetPort())
	}
	if GetFFmpegPath() != "ffmpeg" {
		t.Errorf("Expected default engine path ffmpeg, got %s", GetFFmpegPath())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VIDPRESS_MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("VIDPRESS_TRANSCODE_TIMEOUT", "30s")
	t.Setenv("VIDPRESS_CONCURRENCY", "8")
	t.Setenv("VIDPRESS_PORT", "9090")

	if GetMaxUploadBytes() != 1048576 {
		t.Errorf("Expected overridden upload cap, got %d", GetMaxUploadBytes())
	}
	if GetTranscodeTimeout() != 30*time.Second {
		t.Errorf("Expected overridden timeout, got %v", GetTranscodeTimeout())
	}
	if GetConcurrency() != 8 {
		t.Errorf("Expected overridden concurrency, got %d", GetConcurrency())
	}
	if GetPort() != "9090" {
		t.Errorf("Expected overridden port, got %s", GetPort())
	}
}

func TestInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("VIDPRESS_MAX_UPLOAD_BYTES", "not-a-number")
	t.Setenv("VIDPRESS_TRANSCODE_TIMEOUT", "soon")
	t.Setenv("VIDPRESS_CONCURRENCY", "0")

	if GetMaxUploadBytes() != 200<<20 {
		t.Errorf("Expected fallback upload cap, got %d", GetMaxUploadBytes())
	}
	if GetTranscodeTimeout() != 60*time.Second {
		t.Errorf("Expected fallback timeout, got %v", GetTranscodeTimeout())
	}
	if GetConcurrency() != 1 {
		t.Errorf("Expected concurrency clamped to 1, got %d", GetConcurrency())
	}
}

func TestDBPathsUnderDataDir(t *testing.T) {
	t.Setenv("VIDPRESS_DATA_DIR", "/var/lib/vidpress")

	for _, path := range []string{GetCredentialsDBPath(), GetFailuresDBPath(), GetSuccessDBPath()} {
		if !strings.HasPrefix(path, "/var/lib/vidpress") {
			t.Errorf("Expected db path under data dir, got %s", path)
		}
	}
}

func TestAllowedFlagsOverride(t *testing.T) {
	defaults := GetAllowedFlags()
	if len(defaults) == 0 {
		t.Fatal("Expected a non-empty default allow-list")
	}

	t.Setenv("VIDPRESS_ALLOWED_FLAGS", "-crf, -preset")
	flags := GetAllowedFlags()
	if len(flags) != 2 || flags[0] != "-crf" || flags[1] != "-preset" {
		t.Errorf("Expected [-crf -preset], got %v", flags)
	}

	// Empty override falls back to the defaults
	t.Setenv("VIDPRESS_ALLOWED_FLAGS", " , ")
	if len(GetAllowedFlags()) != len(defaults) {
		t.Errorf("Expected blank override to fall back, got %v", GetAllowedFlags())
	}
}
