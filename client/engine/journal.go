package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Journal is the append-only text log of a run. Writes go straight to the
// file without user-space buffering, so everything written survives an
// abrupt termination of the process.
type Journal struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenJournal opens path for appending and creates missing parent directories.
func OpenJournal(path string) (*Journal, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve journal path: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	f, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	return &Journal{path: abs, file: f}, nil
}

// Path returns the absolute journal path.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}

	return j.path
}

func (j *Journal) Write(p []byte) (int, error) {
	if j == nil {
		return len(p), nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return 0, os.ErrClosed
	}

	return j.file.Write(p)
}

// Close is idempotent.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}

	err := j.file.Close()
	j.file = nil

	return err
}
