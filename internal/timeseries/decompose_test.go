package timeseries

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/newthinker/tsdash/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthly(values []float64) *Series {
	ts := make([]time.Time, len(values))
	label := day(2018, 1, 31)
	for i := range ts {
		ts[i] = label
		label = MonthEnd(label.AddDate(0, 0, 1))
	}
	return &Series{Name: "close", Timestamps: ts, Values: values}
}

// seasonalPattern sums to zero so the decomposition can recover it exactly.
var seasonalPattern = []float64{3, 2, 1, 0, -1, -2, -3, -2, -1, 0, 1, 2}

func synthetic(n int) *Series {
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + 0.5*float64(i) + seasonalPattern[i%12]
	}
	return monthly(values)
}

func TestDecompose_RecoversComponents(t *testing.T) {
	s := synthetic(48)

	d, err := Decompose(s, 12)
	require.NoError(t, err)

	assert.Equal(t, 12, d.Period)
	for i := 0; i < 6; i++ {
		assert.True(t, math.IsNaN(d.Trend.Values[i]), "trend[%d] should be NaN", i)
		assert.True(t, math.IsNaN(d.Trend.Values[47-i]), "trend[%d] should be NaN", 47-i)
		assert.True(t, math.IsNaN(d.Residual.Values[i]))
	}
	for i := 6; i < 42; i++ {
		assert.InDelta(t, 100+0.5*float64(i), d.Trend.Values[i], 1e-9, "trend[%d]", i)
		assert.InDelta(t, 0, d.Residual.Values[i], 1e-9, "residual[%d]", i)
	}
	for i := 0; i < 48; i++ {
		assert.InDelta(t, seasonalPattern[i%12], d.Seasonal.Values[i], 1e-9, "seasonal[%d]", i)
	}
}

func TestDecompose_ComponentsSumToObserved(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = math.Sin(float64(i)) * float64(i)
	}
	s := monthly(values)

	d, err := Decompose(s, 12)
	require.NoError(t, err)

	for i := range values {
		if math.IsNaN(d.Trend.Values[i]) {
			continue
		}
		sum := d.Trend.Values[i] + d.Seasonal.Values[i] + d.Residual.Values[i]
		assert.InDelta(t, values[i], sum, 1e-9)
	}
	assert.Equal(t, s.Timestamps, d.Trend.Timestamps)
}

func TestDecompose_SeasonalCentred(t *testing.T) {
	d, err := Decompose(synthetic(36), 12)
	require.NoError(t, err)

	var sum float64
	for _, v := range d.Seasonal.Values[:12] {
		sum += v
	}
	assert.InDelta(t, 0, sum, 1e-9)
}

func TestDecompose_OddPeriod(t *testing.T) {
	values := []float64{1, 2, 3, 1, 2, 3, 1, 2, 3}
	d, err := Decompose(monthly(values), 3)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(d.Trend.Values[0]))
	assert.InDelta(t, 2, d.Trend.Values[1], 1e-12)
	assert.InDelta(t, -1, d.Seasonal.Values[0], 1e-12)
}

func TestDecompose_InsufficientData(t *testing.T) {
	_, err := Decompose(synthetic(23), 12)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInsufficientData))
}

func TestDecompose_MissingValues(t *testing.T) {
	s := synthetic(36)
	s.Values[5] = math.NaN()

	_, err := Decompose(s, 12)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingValues))
}

func TestDecompose_InvalidPeriod(t *testing.T) {
	_, err := Decompose(synthetic(36), 1)
	assert.Error(t, err)
}
