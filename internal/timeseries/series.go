package timeseries

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/newthinker/tsdash/internal/core"
)

// Series represents a time series with timestamps and values.
type Series struct {
	Name       string
	Timestamps []time.Time
	Values     []float64
}

// New creates a series with explicit timestamps.
func New(name string, timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, errors.New("timestamps and values must have the same length")
	}
	return &Series{
		Name:       name,
		Timestamps: timestamps,
		Values:     values,
	}, nil
}

// FromBars builds a closing price series from daily bars, ordered by time.
// The input slice is not modified.
func FromBars(name string, bars []core.Bar) *Series {
	sorted := make([]core.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	s := &Series{
		Name:       name,
		Timestamps: make([]time.Time, len(sorted)),
		Values:     make([]float64, len(sorted)),
	}
	for i, b := range sorted {
		s.Timestamps[i] = b.Time.UTC()
		s.Values[i] = b.Close
	}
	return s
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// Copy returns a deep copy of the series under a new name.
func (s *Series) Copy(name string) *Series {
	ts := make([]time.Time, len(s.Timestamps))
	copy(ts, s.Timestamps)
	vals := make([]float64, len(s.Values))
	copy(vals, s.Values)
	return &Series{Name: name, Timestamps: ts, Values: vals}
}

// Slice returns the points whose timestamp lies within r, inclusive.
func (s *Series) Slice(r core.DateRange) *Series {
	lo := sort.Search(len(s.Timestamps), func(i int) bool {
		return !s.Timestamps[i].Before(r.Start)
	})
	hi := sort.Search(len(s.Timestamps), func(i int) bool {
		return s.Timestamps[i].After(r.End)
	})
	if hi < lo {
		hi = lo
	}
	out := &Series{
		Name:       s.Name,
		Timestamps: make([]time.Time, hi-lo),
		Values:     make([]float64, hi-lo),
	}
	copy(out.Timestamps, s.Timestamps[lo:hi])
	copy(out.Values, s.Values[lo:hi])
	return out
}

// HasMissing reports whether any value is NaN.
func (s *Series) HasMissing() bool {
	for _, v := range s.Values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Finite returns only the non-NaN points.
func (s *Series) Finite() ([]time.Time, []float64) {
	ts := make([]time.Time, 0, len(s.Values))
	vals := make([]float64, 0, len(s.Values))
	for i, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		ts = append(ts, s.Timestamps[i])
		vals = append(vals, v)
	}
	return ts, vals
}
