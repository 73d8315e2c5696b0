package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultWindow is the rolling window, in months, used by the dashboard.
const DefaultWindow = 12

// RollingWindow computes statistics over a fixed-size trailing window
type RollingWindow struct {
	window int
	values []float64
}

// Rolling creates a rolling window over values.
func Rolling(values []float64, window int) RollingWindow {
	return RollingWindow{window: window, values: values}
}

// Mean returns the rolling mean aligned to the input; the first window-1
// entries, and any window containing NaN, are NaN.
func (r RollingWindow) Mean() []float64 {
	return r.apply(func(block []float64) float64 {
		return stat.Mean(block, nil)
	})
}

// StdDev returns the rolling sample standard deviation (n-1 denominator).
func (r RollingWindow) StdDev() []float64 {
	return r.apply(func(block []float64) float64 {
		if len(block) < 2 {
			return math.NaN()
		}
		return stat.StdDev(block, nil)
	})
}

func (r RollingWindow) apply(fn func([]float64) float64) []float64 {
	out := make([]float64, len(r.values))
	for i := range out {
		out[i] = math.NaN()
	}
	if r.window <= 0 {
		return out
	}

	for i := r.window - 1; i < len(r.values); i++ {
		block := r.values[i-r.window+1 : i+1]
		if hasNaN(block) {
			continue
		}
		out[i] = fn(block)
	}
	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
