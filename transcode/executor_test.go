package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vidpress/models"
)

// writeStubEngine writes an executable shell script that stands in for
// the real engine binary.
func writeStubEngine(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-engine")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("Failed to write stub engine: %v", err)
	}
	return path
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected a %s error, got nil", code)
	}
	var ce *models.CompressionError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected a CompressionError, got %v", err)
	}
	if ce.Code != code {
		t.Errorf("Expected code %s, got %s", code, ce.Code)
	}
}

func TestRunSuccess(t *testing.T) {
	out := filepath.Join(t.TempDir(), "output.mp4")
	// The stub writes its last argument, mirroring an engine producing
	// the output file.
	engine := writeStubEngine(t, `for last; do :; done; echo "payload" > "$last"`)

	f := &FFmpeg{Path: engine, MaxStderrBytes: 8192}
	result, err := f.Run(context.Background(), "in.mp4", out, []string{"-y", out})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", result.ExitCode)
	}
	if result.OutputSize == 0 {
		t.Error("Expected non-zero output size")
	}
	if result.Elapsed <= 0 {
		t.Error("Expected positive elapsed time")
	}
}

func TestRunEmptyOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "output.mp4")
	engine := writeStubEngine(t, "exit 0")

	f := &FFmpeg{Path: engine, MaxStderrBytes: 8192}
	_, err := f.Run(context.Background(), "in.mp4", out, []string{out})
	expectCode(t, err, models.CodeEmptyOutput)
}

func TestRunZeroByteOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "output.mp4")
	engine := writeStubEngine(t, `for last; do :; done; : > "$last"`)

	f := &FFmpeg{Path: engine, MaxStderrBytes: 8192}
	_, err := f.Run(context.Background(), "in.mp4", out, []string{out})
	expectCode(t, err, models.CodeEmptyOutput)
}

func TestRunNonZeroExit(t *testing.T) {
	engine := writeStubEngine(t, `echo "Unknown encoder 'h266'" >&2; exit 1`)

	f := &FFmpeg{Path: engine, MaxStderrBytes: 8192}
	result, err := f.Run(context.Background(), "in.mp4", "out.mp4", nil)
	expectCode(t, err, models.CodeTranscodeFailed)

	if result.ExitCode != 1 {
		t.Errorf("Expected exit code 1, got %d", result.ExitCode)
	}
	if result.Stderr == "" {
		t.Error("Expected captured stderr")
	}
}

func TestRunTimeout(t *testing.T) {
	engine := writeStubEngine(t, "sleep 10")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	f := &FFmpeg{Path: engine, MaxStderrBytes: 8192}
	start := time.Now()
	_, err := f.Run(ctx, "in.mp4", "out.mp4", nil)
	expectCode(t, err, models.CodeTimeout)

	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Expected prompt kill on timeout, took %v", elapsed)
	}
}

func TestRunCancelledIsNotTimeout(t *testing.T) {
	engine := writeStubEngine(t, "sleep 10")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	f := &FFmpeg{Path: engine, MaxStderrBytes: 8192}
	_, err := f.Run(ctx, "in.mp4", "out.mp4", nil)
	if err == nil {
		t.Fatal("Expected a failure after cancellation")
	}

	var ce *models.CompressionError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected a CompressionError, got %v", err)
	}
	if ce.Code == models.CodeTimeout {
		t.Error("A client cancellation must not be classified as a timeout")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected the cancellation cause to be preserved, got %v", err)
	}
}

func TestRunMissingBinary(t *testing.T) {
	f := &FFmpeg{Path: filepath.Join(t.TempDir(), "no-such-engine"), MaxStderrBytes: 8192}
	_, err := f.Run(context.Background(), "in.mp4", "out.mp4", nil)
	expectCode(t, err, models.CodeEngineUnavailable)
}

func TestRunCapsStderr(t *testing.T) {
	engine := writeStubEngine(t, `i=0; while [ $i -lt 100 ]; do echo "frame dropped, bitrate over target, requeueing" >&2; i=$((i+1)); done; exit 1`)

	f := &FFmpeg{Path: engine, MaxStderrBytes: 64}
	result, _ := f.Run(context.Background(), "in.mp4", "out.mp4", nil)
	if len(result.Stderr) > 64 {
		t.Errorf("Expected stderr capped at 64 bytes, got %d", len(result.Stderr))
	}
	if result.Stderr == "" {
		t.Error("Expected the first stderr bytes to be kept")
	}
}
