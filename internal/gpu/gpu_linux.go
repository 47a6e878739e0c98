//go:build linux

package gpu

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const amdVendorID = "0x1002"

// LinuxReader lists NVIDIA GPUs through nvidia-smi and AMD GPUs through
// the DRM sysfs tree.
type LinuxReader struct {
	drmPath string
	run     commandRunner
}

func newPlatformReader() Reader {
	return &LinuxReader{drmPath: "/sys/class/drm", run: execRunner}
}

// GetInfo returns GPU information
func (r *LinuxReader) GetInfo(ctx context.Context) ([]*Info, error) {
	var gpus []*Info

	if nvidia, err := getNvidiaGPUs(ctx, r.run); err == nil {
		gpus = append(gpus, nvidia...)
	}
	if amd, err := r.getAMDGPUs(); err == nil {
		gpus = append(gpus, amd...)
	}

	if len(gpus) == 0 {
		return nil, fmt.Errorf("no supported GPUs found")
	}
	return gpus, nil
}

func (r *LinuxReader) getAMDGPUs() ([]*Info, error) {
	entries, err := os.ReadDir(r.drmPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read DRM directory: %w", err)
	}

	var gpus []*Info
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "card") || strings.Contains(entry.Name(), "-") {
			continue
		}
		cardPath := filepath.Join(r.drmPath, entry.Name(), "device")
		if readTrimmed(filepath.Join(cardPath, "vendor")) != amdVendorID {
			continue
		}

		info := &Info{Index: len(gpus), Vendor: AMD, Model: "AMD GPU"}
		if id := readTrimmed(filepath.Join(cardPath, "device")); id != "" {
			info.Model = fmt.Sprintf("AMD GPU (Device ID: %s)", id)
		}
		info.Usage = readFloat(filepath.Join(cardPath, "gpu_busy_percent"))
		info.VRAM = uint64(readFloat(filepath.Join(cardPath, "mem_info_vram_total"))) / (1024 * 1024)

		if hwmon := findHwmonPath(cardPath); hwmon != "" {
			// millidegrees and microwatts
			info.Temperature = readFloat(filepath.Join(hwmon, "temp1_input")) / 1000
			info.PowerUsage = readFloat(filepath.Join(hwmon, "power1_average")) / 1000000
			if pwm := readFloat(filepath.Join(hwmon, "pwm1")); pwm > 0 {
				info.FanSpeed = pwm / 255 * 100
			}
		}
		gpus = append(gpus, info)
	}

	if len(gpus) == 0 {
		return nil, fmt.Errorf("no AMD GPUs found")
	}
	return gpus, nil
}

func findHwmonPath(cardPath string) string {
	base := filepath.Join(cardPath, "hwmon")
	entries, err := os.ReadDir(base)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "hwmon") {
			return filepath.Join(base, entry.Name())
		}
	}
	return ""
}

func readTrimmed(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func readFloat(path string) float64 {
	v, err := strconv.ParseFloat(readTrimmed(path), 64)
	if err != nil {
		return 0
	}
	return v
}
