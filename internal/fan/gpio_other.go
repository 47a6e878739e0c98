//go:build !linux

package fan

import (
	"context"
	"fmt"
)

// GPIOActuator is only available on Linux.
type GPIOActuator struct{}

func OpenGPIO(pin int) (*GPIOActuator, error) {
	return nil, fmt.Errorf("gpio pin %d: %w", pin, ErrUnsupported)
}

func (g *GPIOActuator) ReadLevel(ctx context.Context) (int, error) { return 0, ErrUnsupported }

func (g *GPIOActuator) WriteLevel(ctx context.Context, level int) error { return ErrUnsupported }

func (g *GPIOActuator) Release(ctx context.Context) error { return nil }
