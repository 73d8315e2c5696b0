// Package dataset reads and writes the daily stock price CSV the dashboard
// analyses. The layout follows the public "World Stock Prices" dataset:
//
//	Date,Open,High,Low,Close,Volume,Brand_Name,Ticker,Industry_Tag,Country
//
// Only Date, Ticker and Close are required.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/tsdash/internal/core"
)

// Record is one row of the dataset.
type Record struct {
	core.Bar
	Brand    string
	Industry string
	Country  string
}

// Options names the columns to read.
type Options struct {
	DateColumn   string
	TickerColumn string
	CloseColumn  string
}

// DefaultOptions returns the column names of the standard layout.
func DefaultOptions() Options {
	return Options{
		DateColumn:   "Date",
		TickerColumn: "Ticker",
		CloseColumn:  "Close",
	}
}

// dateLayouts are tried in order; offsets are honoured and converted to UTC.
var dateLayouts = []string{
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	core.DateLayout,
}

// maxReportedRows caps how many bad rows an error message lists.
const maxReportedRows = 10

var header = []string{"Date", "Open", "High", "Low", "Close", "Volume", "Brand_Name", "Ticker", "Industry_Tag", "Country"}

type columns struct {
	date, ticker, close      int
	open, high, low, volume  int
	brand, industry, country int
}

// ParseDate parses a dataset timestamp into UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		t, err = time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// Decode reads every row of the dataset. Missing or malformed prices become
// NaN. A date that cannot be parsed fails the whole decode, and the error
// lists the offending row numbers.
func Decode(r io.Reader, opts Options) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	head, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, core.WrapError(core.ErrDatasetInvalid, errors.New("empty dataset"))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrDatasetInvalid, err)
	}

	cols, err := locate(head, opts)
	if err != nil {
		return nil, core.WrapError(core.ErrDatasetInvalid, err)
	}

	var records []Record
	var badRows []int
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, core.WrapError(core.ErrDatasetInvalid, err)
		}

		date, err := ParseDate(field(row, cols.date))
		if err != nil {
			badRows = append(badRows, line)
			continue
		}

		records = append(records, Record{
			Bar: core.Bar{
				Symbol: field(row, cols.ticker),
				Open:   number(row, cols.open),
				High:   number(row, cols.high),
				Low:    number(row, cols.low),
				Close:  number(row, cols.close),
				Volume: number(row, cols.volume),
				Time:   date,
			},
			Brand:    field(row, cols.brand),
			Industry: field(row, cols.industry),
			Country:  field(row, cols.country),
		})
	}

	if len(badRows) > 0 {
		return nil, core.WrapError(core.ErrDatasetInvalid, badDatesError(badRows))
	}
	return records, nil
}

// Encode writes records in the standard layout.
func Encode(w io.Writer, records []Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.Time.UTC().Format(dateLayouts[0]),
			formatNumber(rec.Open),
			formatNumber(rec.High),
			formatNumber(rec.Low),
			formatNumber(rec.Close),
			formatNumber(rec.Volume),
			rec.Brand,
			rec.Symbol,
			rec.Industry,
			rec.Country,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// FilterTicker returns the records whose ticker matches exactly.
func FilterTicker(records []Record, ticker string) []Record {
	var out []Record
	for _, rec := range records {
		if rec.Symbol == ticker {
			out = append(out, rec)
		}
	}
	return out
}

func locate(head []string, opts Options) (columns, error) {
	index := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	find := func(name string) int {
		if i, ok := index[strings.ToLower(name)]; ok {
			return i
		}
		return -1
	}

	cols := columns{
		date:     find(opts.DateColumn),
		ticker:   find(opts.TickerColumn),
		close:    find(opts.CloseColumn),
		open:     find("Open"),
		high:     find("High"),
		low:      find("Low"),
		volume:   find("Volume"),
		brand:    find("Brand_Name"),
		industry: find("Industry_Tag"),
		country:  find("Country"),
	}

	var missing []string
	if cols.date < 0 {
		missing = append(missing, opts.DateColumn)
	}
	if cols.ticker < 0 {
		missing = append(missing, opts.TickerColumn)
	}
	if cols.close < 0 {
		missing = append(missing, opts.CloseColumn)
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func number(row []string, idx int) float64 {
	s := field(row, idx)
	switch s {
	case "", "NA", "NaN", "nan", "null":
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func formatNumber(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func badDatesError(rows []int) error {
	shown := rows
	if len(shown) > maxReportedRows {
		shown = shown[:maxReportedRows]
	}
	parts := make([]string, len(shown))
	for i, r := range shown {
		parts[i] = strconv.Itoa(r)
	}
	msg := fmt.Sprintf("%d rows with unparseable Date (rows %s", len(rows), strings.Join(parts, ", "))
	if len(rows) > len(shown) {
		msg += ", ..."
	}
	return errors.New(msg + ")")
}
