package api

import (
	"net/http"

	"github.com/newthinker/tsdash/internal/api/response"
	"github.com/newthinker/tsdash/internal/core"
)

// TickersResponse lists the selectable tickers and the default range.
type TickersResponse struct {
	Tickers      []core.Ticker  `json:"tickers"`
	DefaultRange core.DateRange `json:"default_range"`
}

// TickersHandler serves the ticker list.
type TickersHandler struct {
	analyzer Analyzer
	defaults core.DateRange
}

// NewTickersHandler creates a new tickers handler.
func NewTickersHandler(a Analyzer, defaults core.DateRange) *TickersHandler {
	return &TickersHandler{analyzer: a, defaults: defaults}
}

// List handles GET /api/v1/tickers
func (h *TickersHandler) List(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.analyzer.Tickers(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, TickersResponse{
		Tickers:      tickers,
		DefaultRange: h.defaults,
	})
}
