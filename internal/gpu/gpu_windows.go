//go:build windows

package gpu

import (
	"context"
	"fmt"
	"strings"

	"github.com/StackExchange/wmi"
)

// WindowsReader lists GPUs through nvidia-smi and falls back to WMI.
type WindowsReader struct {
	run commandRunner
}

func newPlatformReader() Reader {
	return &WindowsReader{run: execRunner}
}

// Win32_VideoController represents WMI video controller
type Win32_VideoController struct {
	Name       string
	AdapterRAM uint32
}

// GetInfo returns GPU information
func (r *WindowsReader) GetInfo(ctx context.Context) ([]*Info, error) {
	gpus, _ := getNvidiaGPUs(ctx, r.run)

	var controllers []Win32_VideoController
	if err := wmi.Query("SELECT Name, AdapterRAM FROM Win32_VideoController", &controllers); err == nil {
		for _, c := range controllers {
			if c.Name == "" || alreadyListed(gpus, c.Name) {
				continue
			}
			gpus = append(gpus, &Info{
				Index:  len(gpus),
				Vendor: vendorFromName(c.Name),
				Model:  c.Name,
				VRAM:   uint64(c.AdapterRAM / (1024 * 1024)),
			})
		}
	}

	if len(gpus) == 0 {
		return nil, fmt.Errorf("no GPUs found")
	}
	return gpus, nil
}

func alreadyListed(gpus []*Info, name string) bool {
	lower := strings.ToLower(name)
	for _, g := range gpus {
		if strings.Contains(lower, strings.ToLower(g.Model)) {
			return true
		}
	}
	return false
}

func vendorFromName(name string) Vendor {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "nvidia"), strings.Contains(lower, "geforce"), strings.Contains(lower, "quadro"):
		return NVIDIA
	case strings.Contains(lower, "amd"), strings.Contains(lower, "radeon"):
		return AMD
	case strings.Contains(lower, "intel"):
		return Intel
	}
	return Unknown
}
