//go:build linux

package fan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

const gpioConsumer = "picofanctl"

// gpioLine is the part of *gpiocdev.Line the actuator uses.
type gpioLine interface {
	Value() (int, error)
	SetValue(value int) error
	Close() error
}

// GPIOActuator switches a 2-wire fan behind a transistor on a GPIO line.
// Any level above zero turns the fan on.
type GPIOActuator struct {
	mu    sync.Mutex
	line  gpioLine
	chip  *gpiocdev.Chip
	level int
}

// OpenGPIO requests the line named GPIO<pin> as an output, trying every
// /dev/gpiochip* in turn. The fan starts on.
func OpenGPIO(pin int) (*GPIOActuator, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("invalid gpio pin %d", pin)
	}
	name := fmt.Sprintf("GPIO%d", pin)

	chips, _ := filepath.Glob("/dev/gpiochip*")
	for _, path := range chips {
		if strings.Contains(filepath.Base(path), "-") {
			continue
		}
		chip, err := gpiocdev.NewChip(path)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(name)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(1), gpiocdev.WithConsumer(gpioConsumer))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &GPIOActuator{line: line, chip: chip, level: 100}, nil
	}
	if _, err := os.Stat("/dev/gpiochip0"); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no gpio character devices: %w", err)
	}
	return nil, fmt.Errorf("gpio line %q not found (or busy)", name)
}

// ReadLevel reports the last commanded level while the line is high, and
// 100 if the line was driven high elsewhere.
func (g *GPIOActuator) ReadLevel(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.line == nil {
		return 0, errors.New("gpio line closed")
	}
	v, err := g.line.Value()
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, nil
	}
	if g.level > 0 {
		return g.level, nil
	}
	return 100, nil
}

func (g *GPIOActuator) WriteLevel(ctx context.Context, level int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.line == nil {
		return errors.New("gpio line closed")
	}
	v := 0
	if level > 0 {
		v = 1
	}
	if err := g.line.SetValue(v); err != nil {
		return err
	}
	g.level = level
	return nil
}

// Release leaves the fan running and frees the line.
func (g *GPIOActuator) Release(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.line == nil {
		return nil
	}
	setErr := g.line.SetValue(1)
	closeErr := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return errors.Join(setErr, closeErr)
}
