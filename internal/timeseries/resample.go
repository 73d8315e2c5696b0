package timeseries

import (
	"math"
	"time"
)

// MonthEnd returns the last calendar day of t's month at midnight UTC.
func MonthEnd(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// ResampleMonthly averages observations per calendar month. Every month
// between the first and last observation gets a point labelled with its
// month end; months without any finite observation are NaN.
// The series must be ordered by time.
func (s *Series) ResampleMonthly() *Series {
	out := &Series{Name: s.Name}
	if s.Len() == 0 {
		return out
	}

	first := MonthEnd(s.Timestamps[0])
	last := MonthEnd(s.Timestamps[s.Len()-1])

	var sum float64
	var count int
	idx := 0
	for label := first; !label.After(last); label = MonthEnd(label.AddDate(0, 0, 1)) {
		sum, count = 0, 0
		for idx < s.Len() && !MonthEnd(s.Timestamps[idx]).After(label) {
			if v := s.Values[idx]; !math.IsNaN(v) {
				sum += v
				count++
			}
			idx++
		}

		out.Timestamps = append(out.Timestamps, label)
		if count == 0 {
			out.Values = append(out.Values, math.NaN())
		} else {
			out.Values = append(out.Values, sum/float64(count))
		}
	}

	return out
}
