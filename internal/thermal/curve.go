package thermal

import (
	"fmt"
	"sort"
)

// CurvePoint pairs a temperature threshold with a fan level.
type CurvePoint struct {
	Threshold int `json:"temperature_celsius"`
	Level     int `json:"fan_speed_percent"`
}

// Curve is an ordered threshold-to-level mapping. Thresholds are unique and
// ascending. The zero value is an empty curve.
type Curve struct {
	points []CurvePoint
}

// NewCurve builds a curve from parallel threshold and level slices.
//
// Pairs are sorted by threshold. When a threshold appears more than once,
// the pair configured last wins.
func NewCurve(thresholds, levels []int) (Curve, error) {
	if len(thresholds) != len(levels) {
		return Curve{}, fmt.Errorf("%w: %d thresholds but %d levels", ErrInvalidCurve, len(thresholds), len(levels))
	}

	points := make([]CurvePoint, len(thresholds))
	for i := range thresholds {
		points[i] = CurvePoint{Threshold: thresholds[i], Level: levels[i]}
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Threshold < points[j].Threshold
	})

	deduped := points[:0]
	for _, p := range points {
		if n := len(deduped); n > 0 && deduped[n-1].Threshold == p.Threshold {
			deduped[n-1] = p
			continue
		}
		deduped = append(deduped, p)
	}

	return Curve{points: deduped}, nil
}

// Points returns a copy of the curve points in ascending threshold order.
func (c Curve) Points() []CurvePoint {
	out := make([]CurvePoint, len(c.points))
	copy(out, c.points)
	return out
}

// Len returns the number of points.
func (c Curve) Len() int { return len(c.points) }

// Select maps a temperature estimate to a level.
//
// Thresholds are scanned from highest to lowest and the first one for which
// estimate >= threshold+hysteresis decides the level. Hysteresis therefore
// only applies on the rising edge. With no match the floor is returned. The
// result is always within [floor, ceiling].
func (c Curve) Select(estimate, hysteresis, floor, ceiling int) int {
	for i := len(c.points) - 1; i >= 0; i-- {
		p := c.points[i]
		if estimate >= p.Threshold+hysteresis {
			return clamp(p.Level, floor, ceiling)
		}
	}
	return clamp(floor, floor, ceiling)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
