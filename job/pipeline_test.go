package job

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"vidpress/models"
	"vidpress/storage"
	"vidpress/transcode"
)

var pipelineTestFlags = []string{"-c:v", "-vcodec", "-crf", "-f", "-preset"}
var pipelineTestFormats = []string{"mp4", "avi", "mov", "mkv", "webm"}

// spyRunner records invocations and plays back a scripted outcome.
type spyRunner struct {
	calls  int
	args   []string
	output []byte // written to outputPath when set
	err    error
}

func (s *spyRunner) Run(_ context.Context, _, outputPath string, args []string) (*transcode.Result, error) {
	s.calls++
	s.args = args
	if s.err != nil {
		return &transcode.Result{Stderr: "engine said no"}, s.err
	}
	if err := os.WriteFile(outputPath, s.output, 0644); err != nil {
		return nil, err
	}
	return &transcode.Result{
		Elapsed:    10 * time.Millisecond,
		OutputSize: int64(len(s.output)),
	}, nil
}

// failingBackend rejects every upload.
type failingBackend struct{}

func (failingBackend) Put(context.Context, string, string) error {
	return errors.New("bucket unreachable")
}

func (failingBackend) SignedURL(context.Context, string, time.Duration) (string, time.Time, error) {
	return "", time.Time{}, errors.New("bucket unreachable")
}

func newTestPipeline(t *testing.T, runner transcode.Runner, backend storage.Backend) (*Pipeline, string) {
	t.Helper()
	tempRoot := t.TempDir()

	if backend == nil {
		var err error
		backend, err = storage.NewDirectServe(map[string]string{
			"baseDir":       t.TempDir(),
			"publicBaseURL": "http://localhost:8080",
		})
		if err != nil {
			t.Fatalf("Failed to build direct backend: %v", err)
		}
	}

	return &Pipeline{
		Runner:        runner,
		Backend:       backend,
		Sem:           NewSemaphore(2),
		AllowedFlags:  pipelineTestFlags,
		OutputFormats: pipelineTestFormats,
		RunTimeout:    5 * time.Second,
		AdmissionWait: 100 * time.Millisecond,
		SignedURLTTL:  time.Hour,
		TempRoot:      tempRoot,
	}, tempRoot
}

func assertNoResidue(t *testing.T, tempRoot string) {
	t.Helper()
	entries, err := os.ReadDir(tempRoot)
	if err != nil {
		t.Fatalf("Failed to read temp root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected workspace cleaned up, found %d entries", len(entries))
	}
}

func TestProcessSuccess(t *testing.T) {
	runner := &spyRunner{output: []byte("compressed video bytes")}
	p, tempRoot := newTestPipeline(t, runner, nil)

	payload := strings.NewReader("raw video bytes, quite a few of them")
	resp, err := p.Process(context.Background(), Request{
		JobID:    "job-success-1",
		Filename: "clip.mp4",
		Payload:  payload,
		Options: models.CompressionOptions{
			FFmpegArgs: []string{"-crf", "28"},
		},
	})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	if resp.Status != "success" {
		t.Errorf("Expected status success, got %s", resp.Status)
	}
	if resp.DownloadURL == "" {
		t.Error("Expected a download URL")
	}
	if !strings.Contains(resp.DownloadURL, "job-success-1") {
		t.Errorf("Expected job id in artifact URL, got %s", resp.DownloadURL)
	}
	if resp.ExpiresAt.Before(time.Now()) {
		t.Error("Expected a future expiry")
	}
	if resp.FileInfo.OriginalSize == 0 || resp.FileInfo.CompressedSize == 0 {
		t.Errorf("Expected sizes populated, got %+v", resp.FileInfo)
	}
	if resp.FileInfo.CompressionRatio <= 0 {
		t.Errorf("Expected positive compression ratio, got %f", resp.FileInfo.CompressionRatio)
	}

	if runner.calls != 1 {
		t.Errorf("Expected one engine invocation, got %d", runner.calls)
	}
	assertNoResidue(t, tempRoot)
}

func TestProcessRejectsBadOptionsBeforeEngine(t *testing.T) {
	runner := &spyRunner{output: []byte("x")}
	p, tempRoot := newTestPipeline(t, runner, nil)

	_, err := p.Process(context.Background(), Request{
		JobID:    "job-badopts",
		Filename: "clip.mp4",
		Payload:  strings.NewReader("data"),
		Options: models.CompressionOptions{
			FFmpegArgs: []string{"-c:v", "libx264; rm -rf ~"},
		},
	})
	if err == nil {
		t.Fatal("Expected validation failure")
	}

	var ce *models.CompressionError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected a CompressionError, got %v", err)
	}
	if ce.Code != models.CodeValidation {
		t.Errorf("Expected code %s, got %s", models.CodeValidation, ce.Code)
	}
	if runner.calls != 0 {
		t.Errorf("Engine must not run on invalid options, ran %d times", runner.calls)
	}
	assertNoResidue(t, tempRoot)
}

func TestProcessRejectsEmptyUpload(t *testing.T) {
	runner := &spyRunner{output: []byte("x")}
	p, tempRoot := newTestPipeline(t, runner, nil)

	_, err := p.Process(context.Background(), Request{
		JobID:    "job-empty",
		Filename: "clip.mp4",
		Payload:  strings.NewReader(""),
	})
	if err == nil {
		t.Fatal("Expected empty upload to be rejected")
	}

	ce := models.AsCompressionError(err)
	if ce.Code != models.CodeValidation {
		t.Errorf("Expected code %s, got %s", models.CodeValidation, ce.Code)
	}
	if runner.calls != 0 {
		t.Errorf("Engine must not run on an empty upload, ran %d times", runner.calls)
	}
	assertNoResidue(t, tempRoot)
}

func TestProcessEngineFailureCleansWorkspace(t *testing.T) {
	runner := &spyRunner{err: models.NewCompressionError(
		models.CodeTranscodeFailed, "transcoding failed", errors.New("exit 1"))}
	p, tempRoot := newTestPipeline(t, runner, nil)

	_, err := p.Process(context.Background(), Request{
		JobID:    "job-enginefail",
		Filename: "clip.mp4",
		Payload:  strings.NewReader("data"),
	})
	if err == nil {
		t.Fatal("Expected engine failure to surface")
	}

	ce := models.AsCompressionError(err)
	if ce.Code != models.CodeTranscodeFailed {
		t.Errorf("Expected code %s, got %s", models.CodeTranscodeFailed, ce.Code)
	}
	assertNoResidue(t, tempRoot)
}

func TestProcessPublishFailureCleansWorkspace(t *testing.T) {
	runner := &spyRunner{output: []byte("compressed")}
	p, tempRoot := newTestPipeline(t, runner, failingBackend{})

	_, err := p.Process(context.Background(), Request{
		JobID:    "job-pubfail",
		Filename: "clip.mp4",
		Payload:  strings.NewReader("data"),
	})
	if err == nil {
		t.Fatal("Expected publish failure to surface")
	}

	ce := models.AsCompressionError(err)
	if ce.Code != models.CodePublishFailed {
		t.Errorf("Expected code %s, got %s", models.CodePublishFailed, ce.Code)
	}
	assertNoResidue(t, tempRoot)
}

func TestProcessBusyWhenSaturated(t *testing.T) {
	runner := &spyRunner{output: []byte("x")}
	p, _ := newTestPipeline(t, runner, nil)
	p.Sem = NewSemaphore(1)
	p.AdmissionWait = 30 * time.Millisecond

	// Hold the only slot
	if err := p.Sem.Acquire(context.Background(), time.Second); err != nil {
		t.Fatalf("Failed to take the slot: %v", err)
	}
	defer p.Sem.Release()

	_, err := p.Process(context.Background(), Request{
		JobID:    "job-busy",
		Filename: "clip.mp4",
		Payload:  strings.NewReader("data"),
	})
	if err == nil {
		t.Fatal("Expected a busy rejection")
	}

	ce := models.AsCompressionError(err)
	if ce.Code != models.CodeServiceBusy {
		t.Errorf("Expected code %s, got %s", models.CodeServiceBusy, ce.Code)
	}
	if runner.calls != 0 {
		t.Errorf("Engine must not run when saturated, ran %d times", runner.calls)
	}
}

func TestSanitizeDiagnostics(t *testing.T) {
	wsDir := "/tmp/vidpress-abc123"

	got := sanitizeDiagnostics("open "+wsDir+"/input.mp4: no such file", wsDir)
	if strings.Contains(got, wsDir) {
		t.Errorf("Expected workspace path scrubbed, got %q", got)
	}
	if !strings.Contains(got, "<workspace>") {
		t.Errorf("Expected workspace placeholder, got %q", got)
	}

	// A multi-byte rune straddling the cap must not survive as a
	// broken sequence
	long := strings.Repeat("x", 511) + "é" + strings.Repeat("y", 50)
	got = sanitizeDiagnostics(long, wsDir)
	if len(got) > 512 {
		t.Errorf("Expected diagnostics capped at 512 bytes, got %d", len(got))
	}
	if !utf8.ValidString(got) {
		t.Errorf("Expected valid UTF-8 after truncation, got %q", got)
	}

	got = sanitizeDiagnostics("bad\xff\xfebytes", wsDir)
	if !utf8.ValidString(got) {
		t.Errorf("Expected invalid bytes scrubbed, got %q", got)
	}
}

func TestProcessOutputFormatDrivesKey(t *testing.T) {
	runner := &spyRunner{output: []byte("compressed")}
	p, _ := newTestPipeline(t, runner, nil)

	resp, err := p.Process(context.Background(), Request{
		JobID:    "job-webm",
		Filename: "clip.mp4",
		Payload:  strings.NewReader("data"),
		Options:  models.CompressionOptions{OutputFormat: "webm"},
	})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if !strings.HasSuffix(resp.DownloadURL, "job-webm.webm") {
		t.Errorf("Expected webm artifact link, got %s", resp.DownloadURL)
	}
}
