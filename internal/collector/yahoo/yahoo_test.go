package yahoo

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/tsdash/internal/core"
)

const historyBody = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL", "currency": "USD"},
      "timestamp": [1672756200, 1672842600, 1672929000],
      "indicators": {"quote": [{
        "open":   [130.28, 126.89, 127.13],
        "high":   [130.90, 128.66, 127.77],
        "low":    [124.17, 125.08, 124.76],
        "close":  [125.07, null, 125.02],
        "volume": [112117500, 89113600, 80962700]
      }]}
    }],
    "error": null
  }
}`

func TestYahoo_Name(t *testing.T) {
	y := New()
	if y.Name() != "yahoo" {
		t.Errorf("expected 'yahoo', got '%s'", y.Name())
	}
}

func TestValidateSymbol(t *testing.T) {
	valid := []string{"AAPL", "TSLA", "0700.HK", "600519.SH"}
	for _, s := range valid {
		if err := validateSymbol(s); err != nil {
			t.Errorf("validateSymbol(%q) unexpected error: %v", s, err)
		}
	}

	invalid := []string{"", "AA PL", "../etc", strings.Repeat("A", 21)}
	for _, s := range invalid {
		if err := validateSymbol(s); err == nil {
			t.Errorf("validateSymbol(%q) expected error", s)
		}
	}
}

func TestYahoo_FetchHistory(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(historyBody))
	}))
	defer srv.Close()

	y := New(WithBaseURL(srv.URL), WithTimeout(time.Second))
	start := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)

	bars, err := y.FetchHistory(context.Background(), "AAPL", start, end)
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}

	if gotPath != "/AAPL" {
		t.Errorf("expected path /AAPL, got %s", gotPath)
	}
	if !strings.Contains(gotQuery, "interval=1d") || !strings.Contains(gotQuery, "period1=1672704000") {
		t.Errorf("unexpected query %s", gotQuery)
	}

	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	if !bars[0].Time.Equal(start) {
		t.Errorf("expected first bar on %s, got %s", start, bars[0].Time)
	}
	if bars[0].Close != 125.07 {
		t.Errorf("expected close 125.07, got %v", bars[0].Close)
	}
	if !math.IsNaN(bars[1].Close) {
		t.Errorf("expected NaN close for null, got %v", bars[1].Close)
	}
	if bars[2].Volume != 80962700 {
		t.Errorf("expected volume 80962700, got %v", bars[2].Volume)
	}
}

func TestYahoo_FetchHistory_SymbolPassedThrough(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(historyBody))
	}))
	defer srv.Close()

	y := New(WithBaseURL(srv.URL))
	day := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	for _, symbol := range []string{"0700.HK", "600519.SH"} {
		if _, err := y.FetchHistory(context.Background(), symbol, day, day); err != nil {
			t.Fatalf("FetchHistory(%s) failed: %v", symbol, err)
		}
	}

	want := []string{"/0700.HK", "/600519.SH"}
	if len(paths) != len(want) {
		t.Fatalf("expected %d requests, got %d", len(want), len(paths))
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("request %d: expected path %s, got %s", i, want[i], paths[i])
		}
	}
}

func TestYahoo_FetchHistory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr *core.Error
	}{
		{"server error", http.StatusInternalServerError, "", core.ErrCollectorFailed},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, core.ErrCollectorFailed},
		{"bad json", http.StatusOK, `{`, core.ErrCollectorFailed},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, core.ErrNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			y := New(WithBaseURL(srv.URL))
			now := time.Now()
			_, err := y.FetchHistory(context.Background(), "AAPL", now.AddDate(0, -1, 0), now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestYahoo_FetchHistory_InvalidInput(t *testing.T) {
	y := New(WithBaseURL("http://127.0.0.1:0"))
	now := time.Now()

	if _, err := y.FetchHistory(context.Background(), "AA PL", now, now); err == nil {
		t.Error("expected error for invalid symbol")
	}
	_, err := y.FetchHistory(context.Background(), "AAPL", now, now.AddDate(0, 0, -1))
	if !errors.Is(err, core.ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}
