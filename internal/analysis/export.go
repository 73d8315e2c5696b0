package analysis

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/newthinker/tsdash/internal/core"
)

var exportHeader = []string{"Date", "Close", "Trend", "Seasonal", "Residual", "RollingMean", "RollingStd"}

// WriteCSV writes one row per month with the decomposition and rolling
// columns. Missing values are left empty.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}

	column := func(values []float64, i int) string {
		if i >= len(values) || math.IsNaN(values[i]) {
			return ""
		}
		return strconv.FormatFloat(values[i], 'f', 4, 64)
	}

	var trend, seasonal, residual []float64
	if r.Decomposition != nil {
		trend = r.Decomposition.Trend.Values
		seasonal = r.Decomposition.Seasonal.Values
		residual = r.Decomposition.Residual.Values
	}

	for i, ts := range r.Monthly.Timestamps {
		row := []string{
			ts.Format(core.DateLayout),
			column(r.Monthly.Values, i),
			column(trend, i),
			column(seasonal, i),
			column(residual, i),
			column(r.RollingMean.Values, i),
			column(r.RollingStd.Values, i),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
