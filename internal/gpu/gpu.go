package gpu

import "context"

// Vendor represents GPU vendor
type Vendor string

const (
	NVIDIA  Vendor = "nvidia"
	AMD     Vendor = "amd"
	Intel   Vendor = "intel"
	Unknown Vendor = "unknown"
)

// Info is a point-in-time view of one GPU as reported by the driver tools.
type Info struct {
	Index       int     `json:"index"`
	Vendor      Vendor  `json:"vendor"`
	Model       string  `json:"model"`
	VRAM        uint64  `json:"vram_mb"`
	Usage       float64 `json:"usage_percent"`
	Temperature float64 `json:"temperature_celsius"`
	FanSpeed    float64 `json:"fan_speed_percent"`
	PowerUsage  float64 `json:"power_usage_watts"`
}

// Reader lists the GPUs present on the host.
type Reader interface {
	GetInfo(ctx context.Context) ([]*Info, error)
}

// NewReader creates a new GPU reader for the current platform
func NewReader() Reader {
	return newPlatformReader()
}
