package thermal

// SampleWindow is a bounded FIFO of temperature readings.
//
// Not safe for concurrent use.
type SampleWindow struct {
	samples  []int
	capacity int
}

// NewSampleWindow returns an empty window. A capacity below 1 is treated as 1.
func NewSampleWindow(capacity int) *SampleWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &SampleWindow{
		samples:  make([]int, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a reading, evicting the oldest one when the window is full.
func (w *SampleWindow) Push(v int) {
	if len(w.samples) == w.capacity {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:len(w.samples)-1]
	}
	w.samples = append(w.samples, v)
}

// Len returns the number of buffered readings.
func (w *SampleWindow) Len() int { return len(w.samples) }

// Cap returns the configured capacity.
func (w *SampleWindow) Cap() int { return w.capacity }

// Full reports whether the window reached its capacity.
func (w *SampleWindow) Full() bool { return len(w.samples) == w.capacity }

// Samples returns a copy of the readings, oldest first.
func (w *SampleWindow) Samples() []int {
	out := make([]int, len(w.samples))
	copy(out, w.samples)
	return out
}

// Estimate returns the linearly weighted moving average of the window.
//
// The oldest reading has weight 1 and the newest has weight Len(). The
// result is truncated toward zero. Until the window is full the latest
// reading is returned as is. An empty window yields 0.
func (w *SampleWindow) Estimate() int {
	n := len(w.samples)
	if n == 0 {
		return 0
	}
	if n < w.capacity {
		return w.samples[n-1]
	}

	var sum, weights int64
	for i, s := range w.samples {
		weight := int64(i + 1)
		sum += weight * int64(s)
		weights += weight
	}
	return int(sum / weights)
}
