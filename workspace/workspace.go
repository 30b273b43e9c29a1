// Package workspace manages the isolated per-request scratch
// directory that holds one input file and, on success, one output
// file. A leaked workspace is a correctness bug: the process runs on a
// fixed ephemeral-disk budget.
package workspace

import (
	"os"
	"path/filepath"
	"sync"

	"vidpress/logger"
	"vidpress/models"

	"github.com/google/uuid"
)

// Workspace is a filesystem scope owned by exactly one request. Never
// shared across requests; destroyed unconditionally at request end.
type Workspace struct {
	id   string
	dir  string
	once sync.Once
}

// Open allocates a fresh, collision-free directory under root. The id
// is a random UUID so uniqueness holds under any level of concurrency.
func Open(root string) (*Workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(root, "vidpress-"+id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, models.NewCompressionError(models.CodeResourceExhausted,
			"failed to allocate workspace", err)
	}
	logger.Debugf("workspace %s opened at %s", id, dir)
	return &Workspace{id: id, dir: dir}, nil
}

// ID returns the workspace's unique identifier.
func (w *Workspace) ID() string {
	return w.id
}

// Dir returns the workspace directory path.
func (w *Workspace) Dir() string {
	return w.dir
}

// InputPath returns the path the uploaded file is persisted to. ext
// must include the leading dot; an unknown extension falls back to
// ".bin" so the engine probes the container itself.
func (w *Workspace) InputPath(ext string) string {
	if ext == "" {
		ext = ".bin"
	}
	return filepath.Join(w.dir, "input"+ext)
}

// OutputPath returns the path the engine writes its result to.
func (w *Workspace) OutputPath(format string) string {
	return filepath.Join(w.dir, "output."+format)
}

// Close removes the workspace directory tree. Idempotent: the removal
// runs once, later calls are no-ops. Safe to defer on every exit path.
func (w *Workspace) Close() error {
	var err error
	w.once.Do(func() {
		err = os.RemoveAll(w.dir)
		if err != nil {
			logger.Errorf("failed to remove workspace %s: %v", w.dir, err)
		} else {
			logger.Debugf("workspace %s removed", w.id)
		}
	})
	return err
}
