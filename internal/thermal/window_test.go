package thermal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSampleWindow_WeightedAverage(t *testing.T) {
	w := NewSampleWindow(5)
	for _, v := range []int{40, 50, 60, 70, 80} {
		w.Push(v)
	}
	// (1*40 + 2*50 + 3*60 + 4*70 + 5*80) / 15 = 1000/15
	require.Equal(t, 66, w.Estimate())
}

func TestSampleWindow_Truncates(t *testing.T) {
	w := NewSampleWindow(2)
	w.Push(50)
	w.Push(51)
	// (50 + 2*51) / 3 = 50.67
	require.Equal(t, 50, w.Estimate())
}

func TestSampleWindow_WarmupReturnsLatest(t *testing.T) {
	w := NewSampleWindow(5)
	require.Equal(t, 0, w.Estimate())

	for _, v := range []int{40, 90, 55, 61} {
		w.Push(v)
		require.Equal(t, v, w.Estimate())
	}
	require.False(t, w.Full())
}

func TestSampleWindow_EvictsOldest(t *testing.T) {
	w := NewSampleWindow(3)
	for _, v := range []int{1, 2, 3, 4, 5} {
		w.Push(v)
		require.LessOrEqual(t, w.Len(), 3)
	}
	require.Equal(t, []int{3, 4, 5}, w.Samples())
	require.True(t, w.Full())
}

func TestSampleWindow_MinimumCapacity(t *testing.T) {
	w := NewSampleWindow(0)
	require.Equal(t, 1, w.Cap())
	w.Push(42)
	w.Push(43)
	require.Equal(t, 43, w.Estimate())
}
