//go:build linux

package temps

import (
	"context"

	"github.com/shirou/gopsutil/v3/host"
)

// LinuxReader reads hwmon sensors through gopsutil.
type LinuxReader struct {
	sensors func(ctx context.Context) ([]host.TemperatureStat, error)
}

func newPlatformReader() Reader {
	return &LinuxReader{sensors: host.SensorsTemperaturesWithContext}
}

// GetInfo returns temperature information
func (r *LinuxReader) GetInfo(ctx context.Context) (*Info, error) {
	stats, err := r.sensors(ctx)
	// gopsutil returns partial results alongside per-sensor warnings.
	if err != nil && len(stats) == 0 {
		return nil, err
	}

	info := newInfo()
	for _, t := range stats {
		info.add(&Sensor{
			Name:        t.SensorKey,
			Label:       t.SensorKey,
			Temperature: t.Temperature,
			Critical:    t.Critical,
			Max:         t.High,
		})
	}
	return info, nil
}
