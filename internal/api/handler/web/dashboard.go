package web

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strings"

	"github.com/newthinker/tsdash/internal/analysis"
	"github.com/newthinker/tsdash/internal/api/response"
	"github.com/newthinker/tsdash/internal/chart"
	"github.com/newthinker/tsdash/internal/core"
	"go.uber.org/zap"
)

// StatCard is one statistic tile.
type StatCard struct {
	Label string
	Value string
}

// ChartView is a rendered chart ready to inline.
type ChartView struct {
	Kind  string
	Title string
	SVG   template.HTML
}

// DashboardData holds data for the dashboard template
type DashboardData struct {
	Title   string
	Tickers []core.Ticker
	Ticker  string
	Start   string
	End     string

	Report        *analysis.Report
	Cards         []StatCard
	Price         *ChartView
	Decomposition []ChartView
	Rolling       *ChartView

	// Notice explains a missing decomposition; Error replaces the report.
	Notice string
	Error  string
}

var chartTitles = map[chart.Kind]string{
	chart.KindPrice:    "Closing Price Trend",
	chart.KindObserved: "Observed",
	chart.KindTrend:    "Trend",
	chart.KindSeasonal: "Seasonal",
	chart.KindResidual: "Residual",
	chart.KindRolling:  "Rolling Statistics",
}

// Dashboard renders the dashboard page for ?ticker=&start=&end=
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	data := DashboardData{
		Title: "Stock Time Series Analysis",
		Start: h.defaults.Start.Format(core.DateLayout),
		End:   h.defaults.End.Format(core.DateLayout),
	}

	tickers, err := h.analyzer.Tickers(ctx)
	if err != nil {
		data.Error = describe(err)
		h.render(w, response.StatusCode(err), "dashboard.html", data)
		return
	}
	data.Tickers = tickers

	data.Ticker = q.Get("ticker")
	if data.Ticker == "" && len(tickers) > 0 {
		data.Ticker = tickers[0].Symbol
	}
	if s := q.Get("start"); s != "" {
		data.Start = s
	}
	if e := q.Get("end"); e != "" {
		data.End = e
	}

	req, err := analysis.NewRequest(data.Ticker, data.Start, data.End, h.defaults)
	if err != nil {
		data.Error = describe(err)
		h.render(w, http.StatusBadRequest, "dashboard.html", data)
		return
	}

	report, err := h.analyzer.Analyze(ctx, req)
	if err != nil {
		data.Error = describe(err)
		h.render(w, response.StatusCode(err), "dashboard.html", data)
		return
	}
	data.Report = report
	data.Cards = cards(report)
	if !report.HasDecomposition() {
		data.Notice = decompositionNotice(report)
	}

	svgs, err := h.renderer.RenderAll(ctx, report)
	if err != nil {
		h.logger.Error("rendering charts", zap.String("ticker", report.Ticker), zap.Error(err))
		data.Error = describe(err)
		h.render(w, http.StatusOK, "dashboard.html", data)
		return
	}

	for _, kind := range chart.Kinds() {
		svg, ok := svgs[kind]
		if !ok {
			continue
		}
		view := ChartView{Kind: string(kind), Title: chartTitles[kind], SVG: template.HTML(svg)}
		switch {
		case kind == chart.KindPrice:
			data.Price = &view
		case kind == chart.KindRolling:
			data.Rolling = &view
		case kind.IsDecomposition():
			data.Decomposition = append(data.Decomposition, view)
		}
	}

	h.render(w, http.StatusOK, "dashboard.html", data)
}

// Chart serves one chart as an SVG document: /charts/{ticker}/{kind}.svg
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	kind, err := chart.ParseKind(strings.TrimSuffix(r.PathValue("file"), ".svg"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	req, err := analysis.NewRequest(r.PathValue("ticker"), q.Get("start"), q.Get("end"), h.defaults)
	if err != nil {
		response.Fail(w, err)
		return
	}

	report, err := h.analyzer.Analyze(r.Context(), req)
	if err != nil {
		response.Fail(w, err)
		return
	}

	svg, err := h.renderer.Render(report, kind)
	if err != nil {
		response.Fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "max-age=300")
	w.Write(svg)
}

func cards(report *analysis.Report) []StatCard {
	return []StatCard{
		{Label: "Data Points", Value: fmt.Sprint(report.Stats.Count)},
		{Label: "Min Price", Value: money(report.Stats.Min)},
		{Label: "Max Price", Value: money(report.Stats.Max)},
		{Label: "Average Price", Value: money(report.Stats.Mean)},
	}
}

func money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("$%.2f", v)
}

// decompositionNotice explains why the decomposition panels are missing.
func decompositionNotice(report *analysis.Report) string {
	switch report.DecompositionCode {
	case core.ErrInsufficientData.Code:
		return "Not enough monthly data for a seasonal decomposition: at least " +
			fmt.Sprint(2*report.Period) + " months are needed."
	case core.ErrMissingValues.Code:
		return "The seasonal decomposition needs a gap-free series, but some months " +
			"in the selected range have no closing prices. Try a later start date."
	default:
		return "The seasonal decomposition could not be computed: " + report.DecompositionError
	}
}

// describe turns an error into a message for the error box.
func describe(err error) string {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		if coreErr.Cause != nil {
			return coreErr.Message + ": " + coreErr.Cause.Error()
		}
		return coreErr.Message
	}
	return "Something went wrong while analysing the data."
}
