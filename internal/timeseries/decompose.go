package timeseries

import (
	"fmt"
	"math"
	"time"

	"github.com/newthinker/tsdash/internal/core"
)

// DefaultPeriod is the seasonal period of a monthly series.
const DefaultPeriod = 12

// Decomposition is an additive split of a series: Observed = Trend + Seasonal + Residual.
type Decomposition struct {
	Period   int     `json:"period"`
	Observed *Series `json:"observed"`
	Trend    *Series `json:"trend"`
	Seasonal *Series `json:"seasonal"`
	Residual *Series `json:"residual"`
}

// Decompose performs a classical additive seasonal decomposition.
// The trend is a centred moving average (2xperiod MA for even periods) and
// is NaN for the first and last period/2 points, as is the residual.
func Decompose(series *Series, period int) (*Decomposition, error) {
	if period < 2 {
		return nil, fmt.Errorf("period must be at least 2, got %d", period)
	}
	if series.HasMissing() {
		return nil, core.WrapError(core.ErrMissingValues, fmt.Errorf("series %q", series.Name))
	}
	n := series.Len()
	if n < 2*period {
		return nil, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("need %d observations for two complete cycles, have %d", 2*period, n))
	}

	trend := centredMovingAverage(series.Values, period)

	// Per-phase mean of the detrended values
	pattern := make([]float64, period)
	counts := make([]int, period)
	for i := 0; i < n; i++ {
		if math.IsNaN(trend[i]) {
			continue
		}
		pattern[i%period] += series.Values[i] - trend[i]
		counts[i%period]++
	}
	var patternMean float64
	for i := range pattern {
		if counts[i] > 0 {
			pattern[i] /= float64(counts[i])
		}
		patternMean += pattern[i]
	}
	patternMean /= float64(period)

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	for i := 0; i < n; i++ {
		seasonal[i] = pattern[i%period] - patternMean
		if math.IsNaN(trend[i]) {
			residual[i] = math.NaN()
			continue
		}
		residual[i] = series.Values[i] - trend[i] - seasonal[i]
	}

	return &Decomposition{
		Period:   period,
		Observed: series.Copy("observed"),
		Trend:    withValues(series, "trend", trend),
		Seasonal: withValues(series, "seasonal", seasonal),
		Residual: withValues(series, "residual", residual),
	}, nil
}

// centredMovingAverage returns a NaN-padded centred moving average.
func centredMovingAverage(values []float64, period int) []float64 {
	n := len(values)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	half := period / 2
	for i := half; i < n-half; i++ {
		var sum float64
		if period%2 == 0 {
			// End points get half weight
			sum += 0.5*values[i-half] + 0.5*values[i+half]
			for j := i - half + 1; j < i+half; j++ {
				sum += values[j]
			}
		} else {
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
		}
		out[i] = sum / float64(period)
	}
	return out
}

func withValues(base *Series, name string, values []float64) *Series {
	ts := make([]time.Time, len(base.Timestamps))
	copy(ts, base.Timestamps)
	return &Series{Name: name, Timestamps: ts, Values: values}
}
