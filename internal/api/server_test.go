package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/tsdash/internal/analysis"
	"github.com/newthinker/tsdash/internal/api/response"
	"github.com/newthinker/tsdash/internal/cache"
	"github.com/newthinker/tsdash/internal/chart"
	"github.com/newthinker/tsdash/internal/core"
	"github.com/newthinker/tsdash/internal/dataset"
	"github.com/newthinker/tsdash/internal/metrics"
	"github.com/newthinker/tsdash/internal/storage/archive"
	"go.uber.org/zap"
)

func writeDataset(t *testing.T, store archive.Storage, tickers ...string) {
	t.Helper()
	var records []dataset.Record
	for _, ticker := range tickers {
		for d := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC); d.Year() < 2021; d = d.AddDate(0, 0, 1) {
			records = append(records, dataset.Record{
				Bar:   core.Bar{Symbol: ticker, Close: 100 + float64(d.YearDay())/10 + float64(d.Year()-2018)*20, Time: d},
				Brand: strings.ToLower(ticker),
			})
		}
	}
	var buf bytes.Buffer
	if err := dataset.Encode(&buf, records); err != nil {
		t.Fatal(err)
	}
	if err := store.Write(context.Background(), "prices.csv", buf.Bytes()); err != nil {
		t.Fatal(err)
	}
}

func newTestServer(t *testing.T, apiKey string) (*Server, archive.Storage) {
	t.Helper()
	store, err := archive.NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	writeDataset(t, store, "AAPL")

	reg := metrics.NewRegistry()
	loader := dataset.NewLoader(store, "prices.csv", dataset.DefaultOptions(), nil)
	analyzer := analysis.New(analysis.Config{Tickers: []string{"AAPL", "AMZN"}}, loader, cache.NewMemory(8), reg, nil)
	defaults, _ := core.NewDateRange("2018-01-01", "2022-12-31")

	srv, err := NewServer(Config{
		Host:         "localhost",
		Port:         0,
		APIKey:       apiKey,
		DefaultRange: defaults,
	}, Dependencies{
		Analyzer: analyzer,
		Renderer: chart.NewRenderer(chart.DefaultOptions(), reg),
		Dataset:  loader,
		Metrics:  reg,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv, store
}

func serve(srv *Server, method, path, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := serve(srv, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestServer_RequiresDependencies(t *testing.T) {
	if _, err := NewServer(Config{}, Dependencies{}, nil); err == nil {
		t.Error("expected error without analyzer and renderer")
	}
}

func TestServer_APIAuth_Required(t *testing.T) {
	srv, _ := newTestServer(t, "test-key")

	// Without API key
	w := serve(srv, "GET", "/api/v1/tickers", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", w.Code)
	}

	// Web UI stays public
	w = serve(srv, "GET", "/", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for dashboard, got %d", w.Code)
	}
}

func TestServer_APIAuth_ValidKey(t *testing.T) {
	srv, _ := newTestServer(t, "test-key")

	w := serve(srv, "GET", "/api/v1/tickers", "test-key")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", w.Code)
	}

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	tickers := resp.Data.(map[string]any)["tickers"].([]any)
	if len(tickers) != 2 {
		t.Errorf("expected 2 tickers, got %d", len(tickers))
	}
}

func TestServer_Analysis(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := serve(srv, "GET", "/api/v1/analysis/AAPL", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	data := resp.Data.(map[string]any)
	if data["stats"].(map[string]any)["count"].(float64) != 36 {
		t.Errorf("expected 36 monthly points, got %v", data["stats"])
	}
	if _, ok := data["decomposition"]; !ok {
		t.Error("expected decomposition in report")
	}

	w = serve(srv, "GET", "/api/v1/analysis/AMZN", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for ticker without rows, got %d", w.Code)
	}

	w = serve(srv, "GET", "/api/v1/analysis/MSFT", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown ticker, got %d", w.Code)
	}
}

func TestServer_ChartRoute(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := serve(srv, "GET", "/charts/AAPL/price.svg", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("expected image/svg+xml, got %s", ct)
	}
}

func TestServer_ReloadPicksUpNewTicker(t *testing.T) {
	srv, store := newTestServer(t, "test-key")

	w := serve(srv, "GET", "/api/v1/analysis/AMZN", "test-key")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 before reload, got %d", w.Code)
	}

	writeDataset(t, store, "AAPL", "AMZN")

	w = serve(srv, "POST", "/api/v1/dataset/reload", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for reload without key, got %d", w.Code)
	}

	w = serve(srv, "POST", "/api/v1/dataset/reload", "test-key")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for reload, got %d: %s", w.Code, w.Body.String())
	}

	w = serve(srv, "GET", "/api/v1/analysis/AMZN", "test-key")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 after reload, got %d", w.Code)
	}

	w = serve(srv, "GET", "/api/v1/dataset/reload", "test-key")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET reload, got %d", w.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t, "")

	serve(srv, "GET", "/api/v1/analysis/AAPL", "")

	w := serve(srv, "GET", "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{"http_requests_total", "tsdash_analyses_total", "tsdash_cache_lookups_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s in metrics output", name)
		}
	}
}

func TestServer_UnknownPath(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := serve(srv, "GET", "/signals", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
