package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/tsdash/internal/analysis"
	apihandler "github.com/newthinker/tsdash/internal/api/handler/api"
	"github.com/newthinker/tsdash/internal/api/handler/web"
	"github.com/newthinker/tsdash/internal/api/middleware"
	"github.com/newthinker/tsdash/internal/chart"
	"github.com/newthinker/tsdash/internal/core"
	"github.com/newthinker/tsdash/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for the dashboard
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	APIKey       string
	TemplatesDir string
	MetricsPath  string
	DefaultRange core.DateRange
}

// Dependencies holds the services the routes are backed by.
type Dependencies struct {
	Analyzer *analysis.Analyzer
	Renderer *chart.Renderer
	Dataset  apihandler.DatasetInfo // optional
	Metrics  *metrics.Registry      // nil disables metrics
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Analyzer == nil || deps.Renderer == nil {
		return nil, fmt.Errorf("analyzer and renderer are required")
	}

	mux := http.NewServeMux()

	s := &Server{
		logger: logger,
		mux:    mux,
	}

	// Set up routes
	if err := s.setupRoutes(cfg, deps); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) error {
	// Web UI routes
	webHandler, err := web.NewHandler(cfg.TemplatesDir, web.Dependencies{
		Analyzer:     deps.Analyzer,
		Renderer:     deps.Renderer,
		DefaultRange: cfg.DefaultRange,
		Logger:       s.logger,
	})
	if err != nil {
		return fmt.Errorf("creating web handler: %w", err)
	}

	s.mux.HandleFunc("GET /{$}", webHandler.Dashboard)
	s.mux.HandleFunc("GET /charts/{ticker}/{file}", webHandler.Chart)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// JSON API, behind the API key when one is configured
	auth := middleware.APIKeyAuth(cfg.APIKey)
	tickers := apihandler.NewTickersHandler(deps.Analyzer, cfg.DefaultRange)
	analyses := apihandler.NewAnalysisHandler(deps.Analyzer, cfg.DefaultRange)
	dataset := apihandler.NewDatasetHandler(deps.Analyzer, deps.Dataset, s.logger)

	s.mux.Handle("GET /api/v1/tickers", auth(http.HandlerFunc(tickers.List)))
	s.mux.Handle("GET /api/v1/analysis/{ticker}", auth(http.HandlerFunc(analyses.Get)))
	s.mux.Handle("POST /api/v1/dataset/reload", auth(http.HandlerFunc(dataset.Reload)))

	if deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{Registry: deps.Metrics}))
	}

	return nil
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
