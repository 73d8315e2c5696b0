package api

import (
	"context"
	"net/http"

	"github.com/newthinker/tsdash/internal/analysis"
	"github.com/newthinker/tsdash/internal/api/response"
	"github.com/newthinker/tsdash/internal/core"
)

// Analyzer is the part of analysis.Analyzer the JSON API needs.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Report, error)
	Tickers(ctx context.Context) ([]core.Ticker, error)
}

// AnalysisHandler serves analysis reports as JSON.
type AnalysisHandler struct {
	analyzer Analyzer
	defaults core.DateRange
}

// NewAnalysisHandler creates a new analysis handler. defaults fills in
// missing start and end query parameters.
func NewAnalysisHandler(a Analyzer, defaults core.DateRange) *AnalysisHandler {
	return &AnalysisHandler{analyzer: a, defaults: defaults}
}

// Get handles GET /api/v1/analysis/{ticker}?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	response.JSON(w, http.StatusOK, report)
}
