//go:build !linux && !darwin && !freebsd

package lock

import (
	"errors"
	"fmt"
	"os"
)

type fileGuard struct {
	path string
	file *os.File
}

// acquire falls back to exclusive creation where flock is unavailable.
func acquire(path string) (Guard, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	return &fileGuard{path: path, file: f}, nil
}

func (g *fileGuard) Release() error {
	if g == nil || g.file == nil {
		return nil
	}
	closeErr := g.file.Close()
	g.file = nil
	return errors.Join(closeErr, os.Remove(g.path))
}
