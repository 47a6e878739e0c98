package thermal

import "time"

// DefaultMaxPlausibleTemp bounds raw sensor readings.
const DefaultMaxPlausibleTemp = 200

// Settings are the tunables consumed by the controller.
type Settings struct {
	// Floor and Ceiling bound every commanded level (percent).
	Floor   int
	Ceiling int
	// Hysteresis is added to curve thresholds on the rising edge and is the
	// dead-band of the step limiter.
	Hysteresis int
	// WindowSize is the capacity of the sample window.
	WindowSize int
	// Dwell is the minimum time between two actuator commands.
	Dwell time.Duration

	// Smoothing enables the step limiter.
	Smoothing bool
	// MaxStep is the largest level change allowed in one tick.
	MaxStep int
	// IncreaseWeight and DecreaseWeight divide MaxStep for rising and
	// falling changes respectively. Values below 1 are treated as 1, so 1
	// converges in ceil(|target-current|/MaxStep) ticks and larger weights
	// slow that direction down.
	IncreaseWeight float64
	DecreaseWeight float64

	// MaxPlausibleTemp clamps raw readings. Zero means DefaultMaxPlausibleTemp.
	MaxPlausibleTemp int
}

// normalize clamps out-of-range values instead of rejecting them.
func (s Settings) normalize() Settings {
	s.Floor = clamp(s.Floor, 0, 100)
	s.Ceiling = clamp(s.Ceiling, 0, 100)
	if s.Ceiling < s.Floor {
		s.Ceiling = s.Floor
	}
	if s.Hysteresis < 0 {
		s.Hysteresis = 0
	}
	if s.WindowSize < 1 {
		s.WindowSize = 1
	}
	if s.Dwell < 0 {
		s.Dwell = 0
	}
	if s.MaxStep < 1 {
		s.MaxStep = 1
	}
	if s.IncreaseWeight < 1 {
		s.IncreaseWeight = 1
	}
	if s.DecreaseWeight < 1 {
		s.DecreaseWeight = 1
	}
	if s.MaxPlausibleTemp <= 0 {
		s.MaxPlausibleTemp = DefaultMaxPlausibleTemp
	}
	return s
}

// stepUp and stepDown never exceed MaxStep and are at least 1.
func (s Settings) stepUp() int   { return weightedStep(s.MaxStep, s.IncreaseWeight) }
func (s Settings) stepDown() int { return weightedStep(s.MaxStep, s.DecreaseWeight) }

func weightedStep(maxStep int, weight float64) int {
	step := int(float64(maxStep) / weight)
	if step < 1 {
		return 1
	}
	return step
}
