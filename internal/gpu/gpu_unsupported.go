//go:build !linux && !windows

package gpu

import "context"

// UnsupportedReader only knows about nvidia-smi.
type UnsupportedReader struct {
	run commandRunner
}

func newPlatformReader() Reader {
	return &UnsupportedReader{run: execRunner}
}

// GetInfo returns the GPUs nvidia-smi reports, if any.
func (r *UnsupportedReader) GetInfo(ctx context.Context) ([]*Info, error) {
	return getNvidiaGPUs(ctx, r.run)
}
