package gpu

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// commandRunner executes an external tool and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// NvidiaDevice reads the core temperature and drives the fans of one NVIDIA
// GPU through nvidia-smi and nvidia-settings.
//
// nvidia-settings needs root for fan control; it is run through sudo when
// the process is not privileged.
type NvidiaDevice struct {
	ID int

	run    commandRunner
	isRoot func() bool
}

// NewNvidiaDevice returns the device for the GPU at index id.
func NewNvidiaDevice(id int) *NvidiaDevice {
	return &NvidiaDevice{ID: id, run: execRunner, isRoot: isRoot}
}

// ReadTemperature returns the GPU core temperature in degrees Celsius.
func (d *NvidiaDevice) ReadTemperature(ctx context.Context) (int, error) {
	out, err := d.query(ctx, "temperature.gpu")
	if err != nil {
		return 0, err
	}
	return parseQueryValue(out, "")
}

// ReadLevel returns the current fan speed in percent.
func (d *NvidiaDevice) ReadLevel(ctx context.Context) (int, error) {
	out, err := d.query(ctx, "fan.speed")
	if err != nil {
		return 0, err
	}
	return parseQueryValue(out, "%")
}

// WriteLevel sets every fan of the GPU to level percent.
func (d *NvidiaDevice) WriteLevel(ctx context.Context, level int) error {
	return d.assign(ctx, "GPUFanControlState=1", fmt.Sprintf("GPUTargetFanSpeed=%d", level))
}

// Acquire switches the fans to manual control.
func (d *NvidiaDevice) Acquire(ctx context.Context) error {
	return d.assign(ctx, "GPUFanControlState=1")
}

// Release hands fan control back to the driver.
func (d *NvidiaDevice) Release(ctx context.Context) error {
	return d.assign(ctx, "GPUFanControlState=0")
}

func (d *NvidiaDevice) query(ctx context.Context, field string) ([]byte, error) {
	return d.runner()(ctx, "nvidia-smi",
		fmt.Sprintf("--id=%d", d.ID),
		"--query-gpu="+field,
		"--format=csv,noheader")
}

func (d *NvidiaDevice) assign(ctx context.Context, attrs ...string) error {
	args := []string{"-c", strconv.Itoa(d.ID)}
	for _, a := range attrs {
		args = append(args, "-a", a)
	}

	name := "nvidia-settings"
	if d.isRoot != nil && !d.isRoot() {
		args = append([]string{name}, args...)
		name = "sudo"
	}
	_, err := d.runner()(ctx, name, args...)
	return err
}

func (d *NvidiaDevice) runner() commandRunner {
	if d.run == nil {
		return execRunner
	}
	return d.run
}

// parseQueryValue reads the integer on the first line of a csv,noheader
// query, dropping an optional unit suffix.
func parseQueryValue(out []byte, unit string) (int, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	line = strings.TrimSpace(line)
	if unit != "" {
		line = strings.TrimSpace(strings.TrimSuffix(line, unit))
	}
	v, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("unexpected nvidia-smi value %q", line)
	}
	return v, nil
}

// nvidiaSMILog is the subset of `nvidia-smi -q -x` output we use.
type nvidiaSMILog struct {
	GPUs []struct {
		ProductName string `xml:"product_name"`
		FanSpeed    string `xml:"fan_speed"`
		MemoryInfo  struct {
			Total string `xml:"total"`
		} `xml:"fb_memory_usage"`
		Utilization struct {
			GPU string `xml:"gpu_util"`
		} `xml:"utilization"`
		Temperature struct {
			Current string `xml:"gpu_temp"`
		} `xml:"temperature"`
		PowerReadings struct {
			PowerDraw string `xml:"power_draw"`
		} `xml:"power_readings"`
	} `xml:"gpu"`
}

func getNvidiaGPUs(ctx context.Context, run commandRunner) ([]*Info, error) {
	out, err := run(ctx, "nvidia-smi", "-q", "-x")
	if err != nil {
		return nil, fmt.Errorf("nvidia-smi not available: %w", err)
	}
	return parseNvidiaSMILog(out)
}

func parseNvidiaSMILog(b []byte) ([]*Info, error) {
	var smi nvidiaSMILog
	if err := xml.Unmarshal(b, &smi); err != nil {
		return nil, fmt.Errorf("failed to parse nvidia-smi output: %w", err)
	}

	gpus := make([]*Info, 0, len(smi.GPUs))
	for i, g := range smi.GPUs {
		info := &Info{
			Index:       i,
			Vendor:      NVIDIA,
			Model:       g.ProductName,
			Usage:       parseUnit(g.Utilization.GPU, "%"),
			Temperature: parseUnit(g.Temperature.Current, "C"),
			FanSpeed:    parseUnit(g.FanSpeed, "%"),
			PowerUsage:  parseUnit(g.PowerReadings.PowerDraw, "W"),
		}
		info.VRAM = uint64(parseUnit(g.MemoryInfo.Total, "MiB"))
		gpus = append(gpus, info)
	}
	return gpus, nil
}

// parseUnit parses values like "54 C". Values nvidia-smi reports as N/A
// become zero.
func parseUnit(s, unit string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), unit))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
