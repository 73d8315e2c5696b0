package analysis

import (
	"time"

	"github.com/newthinker/tsdash/internal/core"
	"github.com/newthinker/tsdash/internal/timeseries"
)

// Request selects a ticker and an inclusive date range.
type Request struct {
	Ticker string
	Start  time.Time
	End    time.Time
}

// NewRequest parses YYYY-MM-DD bounds. Empty bounds fall back to defaults.
func NewRequest(ticker, start, end string, defaults core.DateRange) (Request, error) {
	req := Request{Ticker: ticker, Start: defaults.Start, End: defaults.End}
	if start != "" {
		t, err := time.ParseInLocation(core.DateLayout, start, time.UTC)
		if err != nil {
			return Request{}, core.WrapError(core.ErrInvalidRange, err)
		}
		req.Start = t
	}
	if end != "" {
		t, err := time.ParseInLocation(core.DateLayout, end, time.UTC)
		if err != nil {
			return Request{}, core.WrapError(core.ErrInvalidRange, err)
		}
		req.End = t
	}
	return req, nil
}

// Range returns the request bounds as a DateRange.
func (r Request) Range() core.DateRange {
	return core.DateRange{Start: r.Start, End: r.End}
}

// Report is everything the dashboard shows for one request.
type Report struct {
	Ticker  string             `json:"ticker"`
	Range   core.DateRange     `json:"range"`
	Monthly *timeseries.Series `json:"monthly"`
	Stats   timeseries.Stats   `json:"stats"`

	// Decomposition is nil when DecompositionError is set. DecompositionCode
	// is the core.Error code of the failure.
	Decomposition      *timeseries.Decomposition `json:"decomposition,omitempty"`
	DecompositionError string                    `json:"decomposition_error,omitempty"`
	DecompositionCode  string                    `json:"decomposition_code,omitempty"`

	RollingMean *timeseries.Series `json:"rolling_mean"`
	RollingStd  *timeseries.Series `json:"rolling_std"`
	Window      int                `json:"window"`
	Period      int                `json:"period"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// HasDecomposition reports whether the decomposition panels can be drawn.
func (r *Report) HasDecomposition() bool {
	return r.Decomposition != nil
}
