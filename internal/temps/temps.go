package temps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrSensorNotFound is returned when no sensor matches the configured key.
var ErrSensorNotFound = errors.New("temperature sensor not found")

// Sensor represents a temperature sensor
type Sensor struct {
	Name        string  `json:"name"`
	Label       string  `json:"label"`
	Temperature float64 `json:"temperature_celsius"`
	Critical    float64 `json:"critical_celsius"`
	Max         float64 `json:"max_celsius"`
}

// Info groups the host sensors by what they measure.
type Info struct {
	CPU    []*Sensor `json:"cpu"`
	GPU    []*Sensor `json:"gpu"`
	System []*Sensor `json:"system"`
	Drives []*Sensor `json:"drives"`
}

// All returns every sensor, CPU sensors first.
func (i *Info) All() []*Sensor {
	all := make([]*Sensor, 0, len(i.CPU)+len(i.GPU)+len(i.System)+len(i.Drives))
	all = append(all, i.CPU...)
	all = append(all, i.GPU...)
	all = append(all, i.System...)
	return append(all, i.Drives...)
}

func (i *Info) empty() bool {
	return len(i.CPU) == 0 && len(i.GPU) == 0 && len(i.System) == 0 && len(i.Drives) == 0
}

// add files s under the category its name suggests.
func (i *Info) add(s *Sensor) {
	name := strings.ToLower(s.Name)
	switch {
	case containsAny(name, "cpu", "core", "processor", "k10temp"):
		i.CPU = append(i.CPU, s)
	case containsAny(name, "gpu", "nvidia", "amdgpu", "radeon", "video"):
		i.GPU = append(i.GPU, s)
	case containsAny(name, "drive", "disk", "nvme", "sda", "sdb", "storage"):
		i.Drives = append(i.Drives, s)
	default:
		i.System = append(i.System, s)
	}
}

func newInfo() *Info {
	return &Info{
		CPU:    []*Sensor{},
		GPU:    []*Sensor{},
		System: []*Sensor{},
		Drives: []*Sensor{},
	}
}

// Reader interface for temperature monitoring
type Reader interface {
	GetInfo(ctx context.Context) (*Info, error)
}

// NewReader creates a new temperature reader for the current platform
func NewReader() Reader {
	return newPlatformReader()
}

// noSensors is the Reader for hosts without hwmon or WMI.
type noSensors struct {
	goos string
}

func (r noSensors) GetInfo(context.Context) (*Info, error) {
	return nil, fmt.Errorf("host sensors on %s: %w", r.goos, errors.ErrUnsupported)
}

// SensorSource feeds one host sensor to the controller. The first sensor
// whose name contains Key, ignoring case, is used.
type SensorSource struct {
	Key    string
	Reader Reader
}

// NewSensorSource returns a source reading key from the platform reader.
func NewSensorSource(key string) *SensorSource {
	return &SensorSource{Key: key, Reader: NewReader()}
}

// ReadTemperature returns the sensor reading rounded to whole degrees.
func (s *SensorSource) ReadTemperature(ctx context.Context) (int, error) {
	info, err := s.Reader.GetInfo(ctx)
	if err != nil {
		return 0, err
	}
	key := strings.ToLower(s.Key)
	for _, sensor := range info.All() {
		if strings.Contains(strings.ToLower(sensor.Name), key) {
			return int(math.Round(sensor.Temperature)), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrSensorNotFound, s.Key)
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
