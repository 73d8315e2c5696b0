package chart

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/newthinker/tsdash/internal/analysis"
	"github.com/newthinker/tsdash/internal/core"
	"github.com/newthinker/tsdash/internal/indicator"
	"github.com/newthinker/tsdash/internal/metrics"
	"github.com/newthinker/tsdash/internal/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func monthly(n int, value func(i int) float64) *timeseries.Series {
	ts := make([]time.Time, n)
	vals := make([]float64, n)
	for i := range n {
		ts[i] = timeseries.MonthEnd(time.Date(2018, time.Month(1+i), 1, 0, 0, 0, 0, time.UTC))
		vals[i] = value(i)
	}
	return &timeseries.Series{Name: "AAPL", Timestamps: ts, Values: vals}
}

func testReport(t *testing.T, s *timeseries.Series) *analysis.Report {
	t.Helper()
	report := &analysis.Report{
		Ticker:  "AAPL",
		Monthly: s,
		Stats:   s.Summary(),
		Window:  indicator.DefaultWindow,
		Period:  timeseries.DefaultPeriod,
	}
	rolling := indicator.Rolling(s.Values, indicator.DefaultWindow)
	report.RollingMean = &timeseries.Series{Name: "rolling_mean", Timestamps: s.Timestamps, Values: rolling.Mean()}
	report.RollingStd = &timeseries.Series{Name: "rolling_std", Timestamps: s.Timestamps, Values: rolling.StdDev()}

	d, err := timeseries.Decompose(s, timeseries.DefaultPeriod)
	if err != nil {
		report.DecompositionError = err.Error()
	} else {
		report.Decomposition = d
	}
	return report
}

func seasonal(i int) float64 {
	return 100 + float64(i) + 5*math.Sin(2*math.Pi*float64(i%12)/12)
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("candles")
	assert.Error(t, err)

	assert.True(t, KindTrend.IsDecomposition())
	assert.False(t, KindRolling.IsDecomposition())
}

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer(Options{}, nil)
	report := testReport(t, monthly(60, seasonal))
	require.True(t, report.HasDecomposition())

	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			svg, err := r.Render(report, kind)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(bytes.TrimSpace(svg), []byte("<svg")), "not an svg document")
			assert.True(t, bytes.Contains(svg, []byte("</svg>")))
		})
	}
}

func TestRenderer_RenderAll(t *testing.T) {
	reg := metrics.NewRegistry()
	r := NewRenderer(DefaultOptions(), reg)

	charts, err := r.RenderAll(context.Background(), testReport(t, monthly(60, seasonal)))
	require.NoError(t, err)
	assert.Len(t, charts, len(Kinds()))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var renders float64
	for _, mf := range mfs {
		if mf.GetName() != "tsdash_chart_renders_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			renders += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(len(Kinds())), renders)
}

func TestRenderer_WithoutDecomposition(t *testing.T) {
	r := NewRenderer(DefaultOptions(), nil)
	report := testReport(t, monthly(12, seasonal))
	require.False(t, report.HasDecomposition())

	_, err := r.Render(report, KindSeasonal)
	assert.True(t, errors.Is(err, core.ErrNoData))

	charts, err := r.RenderAll(context.Background(), report)
	require.NoError(t, err)
	assert.Contains(t, charts, KindPrice)
	assert.Contains(t, charts, KindRolling)
	assert.NotContains(t, charts, KindTrend)
}

func TestRenderer_SkipsMissingPoints(t *testing.T) {
	r := NewRenderer(DefaultOptions(), nil)
	s := monthly(6, func(i int) float64 {
		if i == 2 {
			return math.NaN()
		}
		return float64(10 + i)
	})

	svg, err := r.Price(testReport(t, s))
	require.NoError(t, err)
	assert.NotEmpty(t, svg)
}

func TestRenderer_NothingToPlot(t *testing.T) {
	r := NewRenderer(DefaultOptions(), nil)
	s := monthly(3, func(i int) float64 {
		if i == 0 {
			return 5
		}
		return math.NaN()
	})

	_, err := r.Price(testReport(t, s))
	assert.True(t, errors.Is(err, core.ErrNoData))

	charts, err := r.RenderAll(context.Background(), testReport(t, s))
	require.NoError(t, err)
	assert.Empty(t, charts)
}

func TestRenderer_ConstantSeries(t *testing.T) {
	r := NewRenderer(DefaultOptions(), nil)
	report := testReport(t, monthly(30, func(int) float64 { return 42 }))

	_, err := r.Price(report)
	require.NoError(t, err)

	// the seasonal component of a constant series is identically zero
	_, err = r.Component(report, KindSeasonal)
	require.NoError(t, err)

	_, err = r.Rolling(report)
	require.NoError(t, err)
}

func TestRenderer_UnknownKind(t *testing.T) {
	r := NewRenderer(DefaultOptions(), nil)
	_, err := r.Render(testReport(t, monthly(24, seasonal)), Kind("volume"))
	assert.Error(t, err)
}
