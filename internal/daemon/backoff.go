package daemon

import (
	"math"
	"math/rand"
	"time"
)

// Backoff spaces out ticks while the sensor keeps failing. The interval
// doubles per consecutive failure, from MinInterval up to MaxInterval, with
// +/-5% jitter.
type Backoff struct {
	MinInterval time.Duration
	MaxInterval time.Duration
	NoJitter    bool
}

// Interval returns the wait after the given number of consecutive failures.
// Zero failures means no backoff.
func (b Backoff) Interval(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	minInterval := b.MinInterval
	if minInterval <= 0 {
		minInterval = time.Second / 8
	}
	maxInterval := b.MaxInterval
	if maxInterval < minInterval {
		maxInterval = max(30*time.Second, minInterval)
	}

	factor := math.Pow(2, min(
		float64(failures-1),
		math.Log2(float64(maxInterval)/float64(minInterval)),
	))
	if !b.NoJitter {
		// #nosec G404
		factor *= .95 + .1*rand.Float64()
	}
	return time.Duration(factor * float64(minInterval))
}
