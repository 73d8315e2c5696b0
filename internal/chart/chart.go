// Package chart renders the dashboard charts of an analysis report as SVG.
package chart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/newthinker/tsdash/internal/analysis"
	"github.com/newthinker/tsdash/internal/core"
	"github.com/newthinker/tsdash/internal/metrics"
	"github.com/newthinker/tsdash/internal/timeseries"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/sync/errgroup"
)

// Kind names one chart of the dashboard.
type Kind string

const (
	KindPrice    Kind = "price"
	KindObserved Kind = "observed"
	KindTrend    Kind = "trend"
	KindSeasonal Kind = "seasonal"
	KindResidual Kind = "residual"
	KindRolling  Kind = "rolling"
)

// Kinds lists every chart in page order.
func Kinds() []Kind {
	return []Kind{KindPrice, KindObserved, KindTrend, KindSeasonal, KindResidual, KindRolling}
}

// ParseKind validates a chart name taken from a URL.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown chart kind %q", s)
}

// IsDecomposition reports whether k is one of the decomposition panels.
func (k Kind) IsDecomposition() bool {
	switch k {
	case KindObserved, KindTrend, KindSeasonal, KindResidual:
		return true
	}
	return false
}

var (
	colorPrimary  = drawing.ColorFromHex("667eea")
	colorTrend    = drawing.ColorFromHex("f093fb")
	colorSeasonal = drawing.ColorFromHex("4facfe")
	colorResidual = drawing.ColorFromHex("f5576c")
	colorStd      = drawing.ColorFromHex("43e97b")
)

// Options sets chart dimensions in pixels.
type Options struct {
	Width       int
	Height      int
	PanelHeight int
}

// DefaultOptions returns the dashboard layout sizes.
func DefaultOptions() Options {
	return Options{Width: 960, Height: 380, PanelHeight: 240}
}

// Renderer draws report charts. It is safe for concurrent use.
type Renderer struct {
	opts    Options
	metrics *metrics.Registry
}

// NewRenderer creates a renderer; reg may be nil.
func NewRenderer(opts Options, reg *metrics.Registry) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.PanelHeight <= 0 {
		opts.PanelHeight = def.PanelHeight
	}
	return &Renderer{opts: opts, metrics: reg}
}

// Render draws one chart. Decomposition panels of a report without a
// decomposition, and charts with nothing to plot, return core.ErrNoData.
func (r *Renderer) Render(report *analysis.Report, kind Kind) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch kind {
	case KindPrice:
		out, err = r.Price(report)
	case KindRolling:
		out, err = r.Rolling(report)
	case KindObserved, KindTrend, KindSeasonal, KindResidual:
		out, err = r.Component(report, kind)
	default:
		return nil, fmt.Errorf("unknown chart kind %q", kind)
	}
	if err == nil && r.metrics != nil {
		r.metrics.RecordChartRender(string(kind))
	}
	return out, err
}

// RenderAll draws every chart the report supports concurrently. Charts
// without data are left out of the result.
func (r *Renderer) RenderAll(ctx context.Context, report *analysis.Report) (map[Kind][]byte, error) {
	var (
		mu  sync.Mutex
		out = make(map[Kind][]byte, len(Kinds()))
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range Kinds() {
		if kind.IsDecomposition() && !report.HasDecomposition() {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			svg, err := r.Render(report, kind)
			if errors.Is(err, core.ErrNoData) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			out[kind] = svg
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Price draws the monthly average closing price with a filled area.
func (r *Renderer) Price(report *analysis.Report) ([]byte, error) {
	series := collect(
		line(report.Monthly, "Monthly Avg Close", gochart.Style{
			StrokeColor: colorPrimary,
			StrokeWidth: 2.5,
			FillColor:   colorPrimary.WithAlpha(26),
		}, gochart.YAxisPrimary),
	)
	return r.draw(fmt.Sprintf("%s Monthly Closing Prices", report.Ticker), "Price (USD)", "", r.opts.Height, series)
}

// Component draws one decomposition panel.
func (r *Renderer) Component(report *analysis.Report, kind Kind) ([]byte, error) {
	if !report.HasDecomposition() {
		return nil, core.WrapError(core.ErrNoData, errors.New(report.DecompositionError))
	}
	d := report.Decomposition

	var (
		s     *timeseries.Series
		title string
		color drawing.Color
	)
	switch kind {
	case KindObserved:
		s, title, color = d.Observed, "Observed", colorPrimary
	case KindTrend:
		s, title, color = d.Trend, "Trend", colorTrend
	case KindSeasonal:
		s, title, color = d.Seasonal, "Seasonal", colorSeasonal
	case KindResidual:
		s, title, color = d.Residual, "Residual", colorResidual
	default:
		return nil, fmt.Errorf("%q is not a decomposition panel", kind)
	}

	series := collect(line(s, title, gochart.Style{StrokeColor: color, StrokeWidth: 2}, gochart.YAxisPrimary))
	return r.draw(title, "", "", r.opts.PanelHeight, series)
}

// Rolling draws the price with its rolling mean and, on a secondary axis,
// its rolling standard deviation.
func (r *Renderer) Rolling(report *analysis.Report) ([]byte, error) {
	series := collect(
		line(report.Monthly, "Monthly Avg Close", gochart.Style{
			StrokeColor: colorPrimary,
			StrokeWidth: 2,
		}, gochart.YAxisPrimary),
		line(report.RollingMean, fmt.Sprintf("%d-Month Rolling Mean", report.Window), gochart.Style{
			StrokeColor:     colorResidual,
			StrokeWidth:     2,
			StrokeDashArray: []float64{6, 4},
		}, gochart.YAxisPrimary),
		line(report.RollingStd, fmt.Sprintf("%d-Month Rolling Std", report.Window), gochart.Style{
			StrokeColor:     colorStd,
			StrokeWidth:     2,
			StrokeDashArray: []float64{2, 3},
		}, gochart.YAxisSecondary),
	)
	return r.draw("Rolling Statistics", "Price (USD)", "Std Dev", r.opts.Height, series)
}

func (r *Renderer) draw(title, yName, y2Name string, height int, series []gochart.TimeSeries) ([]byte, error) {
	if len(series) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s: fewer than two points to plot", title))
	}

	ch := gochart.Chart{
		Title:      title,
		Width:      r.opts.Width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 12}},
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat("2006-01"),
		},
		YAxis: gochart.YAxis{
			Name:  yName,
			Range: flatRange(series, gochart.YAxisPrimary),
		},
	}
	var secondary bool
	for _, s := range series {
		ch.Series = append(ch.Series, s)
		secondary = secondary || s.YAxis == gochart.YAxisSecondary
	}
	if secondary {
		ch.YAxisSecondary = gochart.YAxis{
			Name:  y2Name,
			Range: flatRange(series, gochart.YAxisSecondary),
		}
	}
	if len(series) > 1 {
		ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	}

	var buf bytes.Buffer
	if err := ch.Render(gochart.SVG, &buf); err != nil {
		return nil, core.WrapError(core.ErrRenderFailed, fmt.Errorf("%s: %w", title, err))
	}
	return buf.Bytes(), nil
}

type plotted struct {
	series gochart.TimeSeries
	ok     bool
}

// line converts a series to a go-chart series over its finite points.
// Fewer than two points leaves it unplotted.
func line(s *timeseries.Series, name string, style gochart.Style, axis gochart.YAxisType) plotted {
	if s == nil {
		return plotted{}
	}
	xs, ys := s.Finite()
	if len(xs) < 2 {
		return plotted{}
	}
	return plotted{
		series: gochart.TimeSeries{
			Name:    name,
			XValues: xs,
			YValues: ys,
			Style:   style,
			YAxis:   axis,
		},
		ok: true,
	}
}

func collect(items ...plotted) []gochart.TimeSeries {
	var out []gochart.TimeSeries
	for _, it := range items {
		if it.ok {
			out = append(out, it.series)
		}
	}
	return out
}

// flatRange widens the axis around a constant series, which go-chart
// cannot scale. It returns nil when the data has a spread.
func flatRange(series []gochart.TimeSeries, axis gochart.YAxisType) gochart.Range {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		if s.YAxis != axis {
			continue
		}
		for _, v := range s.YValues {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 0) || hi-lo > 1e-9 {
		return nil
	}
	pad := math.Max(math.Abs(lo)*0.05, 1)
	return &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
