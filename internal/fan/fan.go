package fan

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by actuators that cannot run on this platform.
var ErrUnsupported = errors.New("fan control not supported on this platform")

// Info represents fan information
type Info struct {
	Name   string `json:"name"`
	RPM    int    `json:"rpm"`
	Speed  int    `json:"speed_percent"`
	MaxRPM int    `json:"max_rpm"`
	// Manual is true when the fan is under userspace control.
	Manual bool `json:"manual"`
}

// Lister enumerates the fans of the host.
type Lister interface {
	GetFans(ctx context.Context) ([]*Info, error)
}

// NewLister creates a fan lister for the current platform
func NewLister() Lister {
	return newPlatformLister()
}

// estimateMaxRPM extrapolates the full-speed RPM from one reading.
func estimateMaxRPM(rpm, speed int) int {
	if rpm <= 0 || speed <= 0 {
		return 0
	}
	return rpm * 100 / speed
}
