// Package app wires configuration into the storage, dataset, cache,
// analysis and rendering services shared by every command.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/newthinker/tsdash/internal/analysis"
	"github.com/newthinker/tsdash/internal/api"
	"github.com/newthinker/tsdash/internal/cache"
	"github.com/newthinker/tsdash/internal/chart"
	"github.com/newthinker/tsdash/internal/config"
	"github.com/newthinker/tsdash/internal/core"
	"github.com/newthinker/tsdash/internal/dataset"
	"github.com/newthinker/tsdash/internal/logger"
	"github.com/newthinker/tsdash/internal/metrics"
	"github.com/newthinker/tsdash/internal/storage/archive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentFetches bounds parallel history downloads.
const maxConcurrentFetches = 4

// HistoryFetcher downloads daily bars. yahoo.Yahoo implements it.
type HistoryFetcher interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error)
}

// App is the main application orchestrator
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	store    archive.Storage
	loader   *dataset.Loader
	cache    cache.Cache
	analyzer *analysis.Analyzer
	renderer *chart.Renderer
	metrics  *metrics.Registry
	defaults core.DateRange
}

// New creates a new App instance from a validated configuration
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	defaults, err := cfg.Analysis.DefaultRange()
	if err != nil {
		return nil, err
	}

	store, err := archive.New(archive.Config{
		Type: cfg.Dataset.Storage.Type,
		Path: cfg.Dataset.Storage.Path,
		S3: archive.S3Config{
			Bucket:    cfg.Dataset.Storage.S3.Bucket,
			Endpoint:  cfg.Dataset.Storage.S3.Endpoint,
			Region:    cfg.Dataset.Storage.S3.Region,
			AccessKey: cfg.Dataset.Storage.S3.AccessKey,
			SecretKey: cfg.Dataset.Storage.S3.SecretKey,
			Prefix:    cfg.Dataset.Storage.S3.Prefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating dataset storage: %w", err)
	}

	c, err := cache.New(cache.Config{
		Type:       cfg.Cache.Type,
		MaxEntries: cfg.Cache.MaxEntries,
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	opts := dataset.Options{
		DateColumn:   cfg.Dataset.DateColumn,
		TickerColumn: cfg.Dataset.TickerColumn,
		CloseColumn:  cfg.Dataset.CloseColumn,
	}
	loader := dataset.NewLoader(store, cfg.Dataset.Path, opts, logger.Component(log, "dataset"))

	analyzer := analysis.New(analysis.Config{
		Tickers:  cfg.Analysis.Tickers,
		Period:   cfg.Analysis.Period,
		Window:   cfg.Analysis.Window,
		CacheTTL: cfg.Cache.TTL,
	}, loader, c, reg, logger.Component(log, "analysis"))

	return &App{
		cfg:      cfg,
		logger:   log,
		store:    store,
		loader:   loader,
		cache:    c,
		analyzer: analyzer,
		renderer: chart.NewRenderer(chart.DefaultOptions(), reg),
		metrics:  reg,
		defaults: defaults,
	}, nil
}

// Analyzer returns the report builder.
func (a *App) Analyzer() *analysis.Analyzer {
	return a.analyzer
}

// DefaultRange is the range used when a request gives no dates.
func (a *App) DefaultRange() core.DateRange {
	return a.defaults
}

// Warmup loads the dataset eagerly so the first page view is fast and a
// broken dataset is reported at startup.
func (a *App) Warmup(ctx context.Context) error {
	return a.analyzer.Reload(ctx)
}

// Server builds the HTTP server over the app's services.
func (a *App) Server(templatesDir string) (*api.Server, error) {
	return api.NewServer(api.Config{
		Host:         a.cfg.Server.Host,
		Port:         a.cfg.Server.Port,
		APIKey:       a.cfg.Server.APIKey,
		TemplatesDir: templatesDir,
		MetricsPath:  a.cfg.Metrics.Path,
		DefaultRange: a.defaults,
	}, api.Dependencies{
		Analyzer: a.analyzer,
		Renderer: a.renderer,
		Dataset:  a.loader,
		Metrics:  a.metrics,
	}, logger.Component(a.logger, "http"))
}

// Export analyzes one ticker and writes the monthly report CSV to the
// dataset storage at path.
func (a *App) Export(ctx context.Context, req analysis.Request, path string) (*analysis.Report, error) {
	report, err := a.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf); err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	if err := a.store.Write(ctx, path, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	a.logger.Info("report exported",
		zap.String("ticker", req.Ticker),
		zap.Stringer("range", req.Range()),
		zap.String("path", path),
		zap.Int("rows", report.Monthly.Len()),
	)
	return report, nil
}

// FetchResult summarizes a dataset refresh.
type FetchResult struct {
	Rows    map[string]int
	Kept    int
	Written int
}

// Fetch downloads daily history of tickers and writes the dataset object.
// With merge set, rows of other tickers already in the dataset are kept.
func (a *App) Fetch(ctx context.Context, f HistoryFetcher, tickers []string, rng core.DateRange, merge bool) (*FetchResult, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	fetched := make([][]core.Bar, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, ticker := range tickers {
		g.Go(func() error {
			bars, err := f.FetchHistory(gctx, ticker, rng.Start, rng.End)
			if err != nil {
				return fmt.Errorf("%s: %w", ticker, err)
			}
			fetched[i] = bars
			a.logger.Info("history fetched",
				zap.String("collector", f.Name()),
				zap.String("ticker", ticker),
				zap.Int("bars", len(bars)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &FetchResult{Rows: make(map[string]int, len(tickers))}
	var records []dataset.Record

	if merge {
		existing, err := a.readDataset(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range existing {
			if !slices.Contains(tickers, rec.Symbol) {
				records = append(records, rec)
			}
		}
		result.Kept = len(records)
	}

	for i, bars := range fetched {
		result.Rows[tickers[i]] = len(bars)
		for _, bar := range bars {
			records = append(records, dataset.Record{Bar: bar})
		}
	}

	var buf bytes.Buffer
	if err := dataset.Encode(&buf, records); err != nil {
		return nil, fmt.Errorf("encoding dataset: %w", err)
	}
	if err := a.store.Write(ctx, a.cfg.Dataset.Path, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("writing dataset: %w", err)
	}
	result.Written = len(records)

	a.logger.Info("dataset written",
		zap.String("path", a.cfg.Dataset.Path),
		zap.Int("rows", result.Written),
		zap.Int("kept", result.Kept),
	)
	return result, nil
}

// readDataset returns the current dataset rows; a missing object is empty.
func (a *App) readDataset(ctx context.Context) ([]dataset.Record, error) {
	rc, err := a.store.Open(ctx, a.cfg.Dataset.Path)
	if errors.Is(err, archive.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, core.WrapError(core.ErrDatasetUnavailable, err)
	}
	defer rc.Close()

	opts := dataset.Options{
		DateColumn:   a.cfg.Dataset.DateColumn,
		TickerColumn: a.cfg.Dataset.TickerColumn,
		CloseColumn:  a.cfg.Dataset.CloseColumn,
	}
	return dataset.Decode(rc, opts)
}

// Close releases the cache connection.
func (a *App) Close() error {
	return a.cache.Close()
}
