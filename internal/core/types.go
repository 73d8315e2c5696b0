package core

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used on every user-facing surface.
const DateLayout = "2006-01-02"

// Ticker describes an equity available for analysis
type Ticker struct {
	Symbol   string `json:"symbol" mapstructure:"symbol"`
	Name     string `json:"name" mapstructure:"name"`
	Industry string `json:"industry,omitempty" mapstructure:"industry"`
	Country  string `json:"country,omitempty" mapstructure:"country"`
}

// Bar represents one daily observation of a ticker
type Bar struct {
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Time   time.Time
}

// IsValid checks if the bar has required fields
func (b Bar) IsValid() bool {
	return b.Symbol != "" && !b.Time.IsZero()
}

// DateRange is an inclusive calendar range. Both ends are midnight UTC.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange parses two YYYY-MM-DD dates into a range.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := time.ParseInLocation(DateLayout, start, time.UTC)
	if err != nil {
		return DateRange{}, WrapError(ErrInvalidRange, err)
	}
	e, err := time.ParseInLocation(DateLayout, end, time.UTC)
	if err != nil {
		return DateRange{}, WrapError(ErrInvalidRange, err)
	}
	r := DateRange{Start: s, End: e}
	return r, r.Validate()
}

// Validate checks that the range is ordered.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return WrapError(ErrInvalidRange, nil)
	}
	if r.End.Before(r.Start) {
		return &Error{
			Code:    ErrInvalidRange.Code,
			Message: ErrInvalidRange.Message,
			Cause:   fmt.Errorf("end %s is before start %s", r.End.Format(DateLayout), r.Start.Format(DateLayout)),
		}
	}
	return nil
}

// Contains reports whether t falls within the range, inclusive.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// String formats the range for logs and page titles.
func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}
