package thermal

import (
	"errors"
	"fmt"
)

// ErrInvalidCurve is returned at construction time when the curve cannot be
// built from the configured thresholds and levels.
var ErrInvalidCurve = errors.New("invalid curve configuration")

// SensorReadError reports a failed temperature read.
type SensorReadError struct {
	Err error
}

func (e *SensorReadError) Error() string {
	return fmt.Sprintf("read temperature: %v", e.Err)
}

func (e *SensorReadError) Unwrap() error { return e.Err }

// ActuatorReadError reports a failed read of the current actuator level.
type ActuatorReadError struct {
	Err error
}

func (e *ActuatorReadError) Error() string {
	return fmt.Sprintf("read actuator level: %v", e.Err)
}

func (e *ActuatorReadError) Unwrap() error { return e.Err }

// ActuatorWriteError reports a failed actuator command. Level is the level
// that was attempted.
type ActuatorWriteError struct {
	Level int
	Err   error
}

func (e *ActuatorWriteError) Error() string {
	return fmt.Sprintf("write actuator level %d: %v", e.Level, e.Err)
}

func (e *ActuatorWriteError) Unwrap() error { return e.Err }
