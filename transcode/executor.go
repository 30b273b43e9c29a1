// Package transcode runs the external media engine as a bounded-time
// subprocess. The engine is opaque: the contract is exit code, stderr
// text, and the existence/size of the output file.
package transcode

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"vidpress/logger"
	"vidpress/models"
)

// Result is the outcome of one engine run, consumed by the
// orchestrator to build the response or the error.
type Result struct {
	ExitCode   int
	Elapsed    time.Duration
	OutputSize int64
	Stderr     string
}

// Runner abstracts the engine invocation so the orchestrator can be
// exercised with a spy in tests.
type Runner interface {
	Run(ctx context.Context, inputPath, outputPath string, args []string) (*Result, error)
}

// FFmpeg runs the real engine binary.
type FFmpeg struct {
	Path           string // binary name or path, e.g. "ffmpeg"
	MaxStderrBytes int    // cap on captured diagnostics
}

// cappedBuffer keeps the first limit bytes written to it and discards
// the rest, so a verbose engine cannot grow memory without bound.
type cappedBuffer struct {
	limit int
	buf   []byte
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if remaining := b.limit - len(b.buf); remaining > 0 {
		if len(p) > remaining {
			b.buf = append(b.buf, p[:remaining]...)
		} else {
			b.buf = append(b.buf, p...)
		}
	}
	return len(p), nil
}

// Run executes the engine with the prepared argument vector. The run
// is bounded by ctx; on expiry the process group (the engine and any
// helpers it forked) is killed and the result is a PROCESSING_TIMEOUT
// failure. Success requires exit code zero AND a non-empty output
// file: engines can exit 0 while producing nothing on bad flag
// combinations.
func (f *FFmpeg) Run(ctx context.Context, inputPath, outputPath string, args []string) (*Result, error) {
	stderr := &cappedBuffer{limit: f.MaxStderrBytes}

	cmd := exec.CommandContext(ctx, f.Path, args...)
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid addresses the whole process group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	logger.Debugf("running engine: %s %v", f.Path, args)

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	result := &Result{
		Elapsed: elapsed,
		Stderr:  string(stderr.buf),
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Warnf("engine killed after %v: %v", elapsed, ctx.Err())
			return result, models.NewCompressionError(models.CodeTimeout,
				"transcoding exceeded the processing time limit", ctx.Err())
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			// Client went away; not a timeout, don't record it as one.
			logger.Warnf("engine killed after %v: request cancelled", elapsed)
			return result, models.NewCompressionError(models.CodeInternal,
				"request cancelled during transcoding", ctx.Err())
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			logger.Errorf("engine exited %d: %s", result.ExitCode, result.Stderr)
			return result, models.NewCompressionError(models.CodeTranscodeFailed,
				"transcoding failed", err)
		}

		// The process never ran: binary missing, permission denied.
		// Operational fault, not a per-request retry candidate.
		logger.Errorf("engine spawn failed: %v", err)
		return result, models.NewCompressionError(models.CodeEngineUnavailable,
			"transcoding engine unavailable", err)
	}

	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() == 0 {
		logger.Errorf("engine exited 0 but output is missing or empty: %v", statErr)
		return result, models.NewCompressionError(models.CodeEmptyOutput,
			"transcoding produced no output", statErr)
	}

	result.OutputSize = info.Size()
	logger.Debugf("engine finished in %v, output %d bytes", elapsed, result.OutputSize)
	return result, nil
}
