// Package thermal implements the temperature to fan level control loop:
// sample smoothing, curve lookup with hysteresis, step limiting and
// dwell-time gating of actuator commands.
package thermal

import (
	"context"
	"fmt"
	"time"
)

// TemperatureSource reads the raw temperature of the managed device in
// degrees Celsius.
type TemperatureSource interface {
	ReadTemperature(ctx context.Context) (int, error)
}

// ActuatorSink reads and commands the fan level (percent) of the managed
// device.
type ActuatorSink interface {
	ReadLevel(ctx context.Context) (int, error)
	WriteLevel(ctx context.Context, level int) error
}

// Phase is the actuation state of the controller.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseCooldown Phase = "cooldown"
)

// State is the controller's view of the device after the last tick.
type State struct {
	Temperature   int       `json:"temperature_celsius"`
	Estimate      int       `json:"estimate_celsius"`
	CurrentLevel  int       `json:"current_level_percent"`
	TargetLevel   int       `json:"target_level_percent"`
	LastActuation time.Time `json:"last_actuation,omitempty"`
	LastSample    time.Time `json:"last_sample,omitempty"`
}

// TickResult describes what one tick decided.
type TickResult struct {
	Estimate int `json:"estimate_celsius"`
	// Current is the level observed on the device before the tick.
	Current int `json:"current_level_percent"`
	// Target is the curve level for Estimate.
	Target int `json:"target_level_percent"`
	// Commanded is Target after step limiting.
	Commanded int `json:"commanded_level_percent"`
	// Actuated is true when the device was written.
	Actuated bool `json:"actuated"`
	// Suppressed is true when a change was computed but the dwell interval
	// had not elapsed.
	Suppressed bool `json:"suppressed"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller drives one device.
//
// Not safe for concurrent use; callers serialize ticks.
type Controller struct {
	settings Settings
	curve    Curve
	source   TemperatureSource
	sink     ActuatorSink
	window   *SampleWindow
	state    State
	now      func() time.Time
}

// New creates a controller. Settings are clamped to sane ranges. An empty
// curve without a floor level is rejected with ErrInvalidCurve.
func New(settings Settings, curve Curve, source TemperatureSource, sink ActuatorSink, opts ...Option) (*Controller, error) {
	if source == nil || sink == nil {
		return nil, fmt.Errorf("thermal: temperature source and actuator sink are required")
	}
	if curve.Len() == 0 && settings.Floor <= 0 {
		return nil, fmt.Errorf("%w: empty curve and no floor level", ErrInvalidCurve)
	}

	settings = settings.normalize()
	c := &Controller{
		settings: settings,
		curve:    curve,
		source:   source,
		sink:     sink,
		window:   NewSampleWindow(settings.WindowSize),
		now:      time.Now,
		state:    State{TargetLevel: settings.Floor},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Settings returns the normalized settings.
func (c *Controller) Settings() Settings { return c.settings }

// Curve returns the curve in use.
func (c *Controller) Curve() Curve { return c.curve }

// State returns a copy of the current state.
func (c *Controller) State() State { return c.state }

// Samples returns the buffered readings, oldest first.
func (c *Controller) Samples() []int { return c.window.Samples() }

// Phase reports whether the controller is waiting out the dwell interval.
func (c *Controller) Phase(now time.Time) Phase {
	if c.dwellElapsed(now) {
		return PhaseIdle
	}
	return PhaseCooldown
}

// UpdateTemperature reads the sensor and the current fan level, pushes the
// reading into the sample window and recomputes the estimate. Nothing is
// recorded when a read fails.
func (c *Controller) UpdateTemperature(ctx context.Context) error {
	temp, err := c.source.ReadTemperature(ctx)
	if err != nil {
		return &SensorReadError{Err: err}
	}
	level, err := c.sink.ReadLevel(ctx)
	if err != nil {
		return &ActuatorReadError{Err: err}
	}

	temp = clamp(temp, 0, c.settings.MaxPlausibleTemp)
	c.window.Push(temp)

	c.state.Temperature = temp
	c.state.CurrentLevel = clamp(level, 0, 100)
	c.state.Estimate = c.window.Estimate()
	c.state.LastSample = c.now()
	return nil
}

// SelectTargetLevel maps an estimate to a level through the curve.
func (c *Controller) SelectTargetLevel(estimate int) int {
	s := c.settings
	return c.curve.Select(estimate, s.Hysteresis, s.Floor, s.Ceiling)
}

// SmoothToward moves current toward target by at most one step.
//
// Differences within the hysteresis band are ignored. Rising changes are
// capped to MaxStep/IncreaseWeight and falling ones to
// MaxStep/DecreaseWeight. The result is within [Floor, Ceiling]; when
// current lies outside that range the clamp wins over the step cap, so a
// fan idling below Floor jumps straight to Floor.
func (c *Controller) SmoothToward(current, target int) int {
	s := c.settings
	diff := target - current
	switch {
	case abs(diff) <= s.Hysteresis:
		diff = 0
	case diff > 0:
		diff = min(diff, s.stepUp())
	default:
		diff = max(diff, -s.stepDown())
	}
	return clamp(current+diff, s.Floor, s.Ceiling)
}

// Tick runs one control cycle and writes the device when the commanded
// level differs from the observed one and the dwell interval has elapsed.
//
// A failed write leaves the last actuation time untouched so the next tick
// retries if the level still diverges.
func (c *Controller) Tick(ctx context.Context) (TickResult, error) {
	if err := c.UpdateTemperature(ctx); err != nil {
		return TickResult{}, err
	}

	res := TickResult{
		Estimate: c.state.Estimate,
		Current:  c.state.CurrentLevel,
	}
	res.Target = c.SelectTargetLevel(res.Estimate)
	res.Commanded = res.Target
	if c.settings.Smoothing {
		res.Commanded = c.SmoothToward(res.Current, res.Target)
	}
	c.state.TargetLevel = res.Commanded

	if res.Commanded == res.Current {
		return res, nil
	}

	now := c.now()
	if !c.dwellElapsed(now) {
		res.Suppressed = true
		return res, nil
	}

	if err := c.sink.WriteLevel(ctx, res.Commanded); err != nil {
		return res, &ActuatorWriteError{Level: res.Commanded, Err: err}
	}
	c.state.LastActuation = now
	res.Actuated = true
	return res, nil
}

func (c *Controller) dwellElapsed(now time.Time) bool {
	if c.state.LastActuation.IsZero() {
		return true
	}
	return now.Sub(c.state.LastActuation) >= c.settings.Dwell
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
