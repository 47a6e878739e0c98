package platform

import (
	"fmt"
	"runtime"
)

// SupportedOS represents supported operating systems
type SupportedOS string

const (
	Linux   SupportedOS = "linux"
	Windows SupportedOS = "windows"
)

// backendOS lists where each fan backend can drive hardware. nvidia-settings
// needs an X server, so NVIDIA fan control is Linux only as well.
var backendOS = map[string][]SupportedOS{
	"nvidia": {Linux},
	"hwmon":  {Linux},
	"gpio":   {Linux},
}

// GetOS returns the current operating system
func GetOS() SupportedOS {
	return SupportedOS(runtime.GOOS)
}

// IsSupported reports whether the monitoring endpoints work on this OS.
func IsSupported() bool {
	os := GetOS()
	return os == Linux || os == Windows
}

// ValidateBackend returns an error if backend cannot run on this OS.
func ValidateBackend(backend string) error {
	return validate(GetOS(), backend)
}

func validate(os SupportedOS, backend string) error {
	supported, ok := backendOS[backend]
	if !ok {
		return fmt.Errorf("unknown backend %q", backend)
	}
	for _, s := range supported {
		if s == os {
			return nil
		}
	}
	return fmt.Errorf("backend %q is not supported on %s. Supported: %v", backend, os, supported)
}
