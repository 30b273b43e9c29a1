package job

import (
	"context"
	"time"

	"vidpress/models"
)

// Semaphore is the process-wide concurrency gate for compression
// pipelines. It is an explicit value handed to the pipeline, not an
// ambient singleton, so tests can inject a smaller bound.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore creates a semaphore admitting at most n holders.
func NewSemaphore(n int) *Semaphore {
	return &Semaphore{slots: make(chan struct{}, n)}
}

// Acquire takes a slot, waiting up to maxWait for one to free up.
// Beyond the wait the request is rejected with SERVICE_BUSY: bounded
// queuing only, unbounded queuing would defeat the resource budget the
// ceiling exists to protect.
func (s *Semaphore) Acquire(ctx context.Context, maxWait time.Duration) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	select {
	case s.slots <- struct{}{}:
		return nil
	case <-timer.C:
		return models.NewCompressionError(models.CodeServiceBusy,
			"server is at capacity, try again later", nil)
	case <-ctx.Done():
		return models.NewCompressionError(models.CodeServiceBusy,
			"request cancelled while waiting for capacity", ctx.Err())
	}
}

// Release frees a slot. Must be called exactly once per successful
// Acquire.
func (s *Semaphore) Release() {
	select {
	case <-s.slots:
	default:
		// Release without Acquire is a programming error; don't block.
	}
}

// Active returns the number of currently held slots.
func (s *Semaphore) Active() int {
	return len(s.slots)
}

// Capacity returns the concurrency ceiling.
func (s *Semaphore) Capacity() int {
	return cap(s.slots)
}
