// Package job drives one compression request through its stages:
// validate options, open a workspace, persist the upload, run the
// engine, publish the artifact. Each request walks the state machine
// Received -> Validating -> Workspacing -> Transcoding -> Publishing
// -> Completed, with any state able to fall to Failed. Workspace
// teardown and slot release happen exactly once on entry to a
// terminal state.
package job

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"vidpress/failures"
	"vidpress/logger"
	"vidpress/models"
	"vidpress/options"
	"vidpress/storage"
	"vidpress/success"
	"vidpress/transcode"
	"vidpress/workspace"
)

// State is the pipeline position of one request.
type State int

const (
	StateReceived State = iota
	StateValidating
	StateWorkspacing
	StateTranscoding
	StatePublishing
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateValidating:
		return "validating"
	case StateWorkspacing:
		return "workspacing"
	case StateTranscoding:
		return "transcoding"
	case StatePublishing:
		return "publishing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pipeline holds the collaborators and limits one compression pipeline
// runs under. Built once at startup and shared by all requests; it has
// no per-request state.
type Pipeline struct {
	Runner        transcode.Runner
	Backend       storage.Backend
	Sem           *Semaphore
	AllowedFlags  []string
	OutputFormats []string
	RunTimeout    time.Duration
	AdmissionWait time.Duration
	SignedURLTTL  time.Duration
	TempRoot      string
}

// Request is one compression job: the upload payload and its options.
type Request struct {
	JobID    string
	Filename string
	Payload  io.Reader
	Options  models.CompressionOptions
}

// Process runs the request to a terminal state and returns the success
// payload or a *models.CompressionError. A concurrency slot is held
// for the duration; the workspace is destroyed on every exit path,
// including cancellation and timeout.
func (p *Pipeline) Process(ctx context.Context, req Request) (*models.CompressionResponse, error) {
	if err := p.Sem.Acquire(ctx, p.AdmissionWait); err != nil {
		return nil, p.fail(req.JobID, StateReceived, err, "")
	}
	defer p.Sem.Release()

	state := StateValidating
	logger.Infof("job %s: %s", req.JobID, state)

	validated, err := options.Validate(req.Options.FFmpegArgs, p.AllowedFlags)
	if err != nil {
		return nil, p.fail(req.JobID, state, err, "")
	}
	format, err := options.ValidateOutputFormat(req.Options.OutputFormat, p.OutputFormats)
	if err != nil {
		return nil, p.fail(req.JobID, state, err, "")
	}

	state = StateWorkspacing
	ws, err := workspace.Open(p.TempRoot)
	if err != nil {
		return nil, p.fail(req.JobID, state, err, "")
	}
	defer ws.Close()

	inputPath := ws.InputPath(extensionOf(req.Filename))
	originalSize, err := persistPayload(inputPath, req.Payload)
	if err != nil {
		return nil, p.fail(req.JobID, state, err, "")
	}
	if originalSize == 0 {
		return nil, p.fail(req.JobID, state, models.NewCompressionError(
			models.CodeValidation, "uploaded file is empty", nil), "")
	}

	state = StateTranscoding
	logger.Infof("job %s: %s (%d bytes in)", req.JobID, state, originalSize)

	outputPath := ws.OutputPath(format)
	args := transcode.BuildArgs(inputPath, outputPath, validated, format)

	runCtx, cancel := context.WithTimeout(ctx, p.RunTimeout)
	defer cancel()

	result, err := p.Runner.Run(runCtx, inputPath, outputPath, args)
	if err != nil {
		diag := ""
		if result != nil {
			diag = sanitizeDiagnostics(result.Stderr, ws.Dir())
		}
		return nil, p.fail(req.JobID, state, err, diag)
	}

	state = StatePublishing
	logger.Infof("job %s: %s (%d bytes out, transcode took %v)",
		req.JobID, state, result.OutputSize, result.Elapsed)

	key := fmt.Sprintf("compressed/%s.%s", req.JobID, format)
	location, err := storage.Publish(ctx, p.Backend, outputPath, key, p.SignedURLTTL)
	if err != nil {
		// The transcode succeeded but the artifact is unpublishable;
		// that is still an overall failure, and the local copy dies
		// with the workspace.
		return nil, p.fail(req.JobID, state, err, "")
	}

	state = StateCompleted
	ratio := float64(result.OutputSize) / float64(originalSize)
	processingTime := result.Elapsed.Seconds()
	logger.Infof("job %s: %s (ratio %.3f)", req.JobID, state, ratio)

	if err := success.StoreSuccess(success.SuccessRecord{
		JobID:            req.JobID,
		StorageKey:       location.Key,
		OriginalSize:     originalSize,
		CompressedSize:   result.OutputSize,
		CompressionRatio: ratio,
		ProcessingTime:   processingTime,
	}); err != nil {
		// History is best effort; the client still gets its artifact.
		logger.Errorf("job %s: failed to store success record: %v", req.JobID, err)
	}

	return &models.CompressionResponse{
		Status:         "success",
		DownloadURL:    location.URL,
		ExpiresAt:      location.ExpiresAt,
		ProcessingTime: processingTime,
		FileInfo: models.FileInfo{
			OriginalSize:     originalSize,
			CompressedSize:   result.OutputSize,
			CompressionRatio: ratio,
		},
	}, nil
}

// fail records the failure and returns the taxonomy error for the
// client. diag is sanitized engine stderr, possibly empty.
func (p *Pipeline) fail(jobID string, state State, err error, diag string) error {
	ce := models.AsCompressionError(err)
	logger.Errorf("job %s failed in state %s: %v", jobID, state, err)

	if storeErr := failures.StoreFailure(jobID, ce.Code, ce.Message, diag); storeErr != nil {
		logger.Errorf("job %s: failed to store failure record: %v", jobID, storeErr)
	}
	return ce
}

// persistPayload writes the upload into the workspace and reports the
// byte count.
func persistPayload(path string, payload io.Reader) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, models.NewCompressionError(models.CodeResourceExhausted,
			"failed to persist the upload", err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, payload)
	if err != nil {
		return n, models.NewCompressionError(models.CodeResourceExhausted,
			"failed to persist the upload", err)
	}
	return n, nil
}

// sanitizeDiagnostics truncates engine stderr and strips workspace
// paths so internal filesystem layout never reaches the client.
func sanitizeDiagnostics(stderr, wsDir string) string {
	const maxDiag = 512

	s := strings.ReplaceAll(stderr, wsDir, "<workspace>")
	if len(s) > maxDiag {
		s = s[:maxDiag]
	}
	// Scrub after slicing: the cut itself can split a rune.
	s = strings.ToValidUTF8(s, "")
	return strings.TrimSpace(s)
}

func extensionOf(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return strings.ToLower(filename[i:])
	}
	return ""
}
