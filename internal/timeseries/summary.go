package timeseries

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats holds the descriptive statistics shown on the dashboard cards.
type Stats struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
}

// Summary computes count, min, max and mean over the finite values.
// An empty series yields Count 0 and NaN for the rest.
func (s *Series) Summary() Stats {
	_, vals := s.Finite()
	if len(vals) == 0 {
		nan := math.NaN()
		return Stats{Min: nan, Max: nan, Mean: nan}
	}
	return Stats{
		Count: len(vals),
		Min:   floats.Min(vals),
		Max:   floats.Max(vals),
		Mean:  stat.Mean(vals, nil),
	}
}
