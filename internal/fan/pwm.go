package fan

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// hwmon pwmN_enable values.
const (
	enableManual = "1"
	enableAuto   = "2"
)

// PWMActuator drives an hwmon PWM channel such as
// /sys/class/hwmon/hwmon2/pwm1. Levels are percent; the channel takes 0..255.
type PWMActuator struct {
	Path string
}

// NewPWMActuator returns an actuator for the pwm file at path.
func NewPWMActuator(path string) *PWMActuator {
	return &PWMActuator{Path: path}
}

func (a *PWMActuator) enablePath() string { return a.Path + "_enable" }

// ReadLevel returns the current duty in percent.
func (a *PWMActuator) ReadLevel(ctx context.Context) (int, error) {
	v, err := readInt(a.Path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", a.Path, err)
	}
	return pwmToPercent(v), nil
}

// WriteLevel sets the duty to level percent.
func (a *PWMActuator) WriteLevel(ctx context.Context, level int) error {
	v := strconv.Itoa(percentToPWM(level))
	if err := os.WriteFile(a.Path, []byte(v), 0o644); err != nil {
		return fmt.Errorf("failed to set PWM value: %w", err)
	}
	return nil
}

// Acquire puts the channel in manual mode.
func (a *PWMActuator) Acquire(ctx context.Context) error {
	if err := os.WriteFile(a.enablePath(), []byte(enableManual), 0o644); err != nil {
		return fmt.Errorf("failed to set manual mode (try running as root): %w", err)
	}
	return nil
}

// Release returns the channel to automatic mode.
func (a *PWMActuator) Release(ctx context.Context) error {
	if err := os.WriteFile(a.enablePath(), []byte(enableAuto), 0o644); err != nil {
		return fmt.Errorf("failed to set automatic mode: %w", err)
	}
	return nil
}

func pwmToPercent(v int) int {
	v = min(max(v, 0), 255)
	return (v*100 + 127) / 255
}

func percentToPWM(p int) int {
	p = min(max(p, 0), 100)
	return (p*255 + 50) / 100
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(b)))
}
