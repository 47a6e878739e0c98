// Package lock keeps a single controller process per host.
package lock

import "errors"

// DefaultPath is the lock file used by picofanctl.
const DefaultPath = "/tmp/picofanctl.lock"

// ErrAlreadyRunning is returned when another process holds the lock.
var ErrAlreadyRunning = errors.New("another instance of the program is already running")

// Guard is a held lock. Release removes it.
type Guard interface {
	Release() error
}

// Acquire takes the lock at path.
func Acquire(path string) (Guard, error) {
	return acquire(path)
}
