package timeseries

import "math"

// Interpolate fills NaN gaps by linear interpolation over positions.
// Leading NaNs have no left anchor and stay NaN; trailing NaNs take the
// last valid value.
func (s *Series) Interpolate() *Series {
	out := s.Copy(s.Name)
	vals := out.Values

	last := -1
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if last >= 0 && i-last > 1 {
			step := (v - vals[last]) / float64(i-last)
			for j := last + 1; j < i; j++ {
				vals[j] = vals[last] + step*float64(j-last)
			}
		}
		last = i
	}

	if last >= 0 {
		for j := last + 1; j < len(vals); j++ {
			vals[j] = vals[last]
		}
	}

	return out
}
