package timeseries

import (
	"encoding/json"
	"math"
	"time"
)

// Point is the JSON form of one observation; a missing value is null.
type Point struct {
	Time  time.Time `json:"time"`
	Value *float64  `json:"value"`
}

type seriesJSON struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Points returns the series as JSON-friendly points.
func (s *Series) Points() []Point {
	points := make([]Point, len(s.Values))
	for i, v := range s.Values {
		points[i] = Point{Time: s.Timestamps[i], Value: nullable(v)}
	}
	return points
}

// MarshalJSON encodes NaN values as null.
func (s *Series) MarshalJSON() ([]byte, error) {
	return json.Marshal(seriesJSON{Name: s.Name, Points: s.Points()})
}

// UnmarshalJSON decodes null values back to NaN.
func (s *Series) UnmarshalJSON(data []byte) error {
	var raw seriesJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Name = raw.Name
	s.Timestamps = make([]time.Time, len(raw.Points))
	s.Values = make([]float64, len(raw.Points))
	for i, p := range raw.Points {
		s.Timestamps[i] = p.Time.UTC()
		s.Values[i] = math.NaN()
		if p.Value != nil {
			s.Values[i] = *p.Value
		}
	}
	return nil
}

// MarshalJSON encodes undefined statistics as null.
func (st Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count int      `json:"count"`
		Min   *float64 `json:"min"`
		Max   *float64 `json:"max"`
		Mean  *float64 `json:"mean"`
	}{st.Count, nullable(st.Min), nullable(st.Max), nullable(st.Mean)})
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
