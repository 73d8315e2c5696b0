// Package analysis turns the daily price dataset into the monthly report
// rendered by the dashboard: summary statistics, an additive seasonal
// decomposition and rolling mean/standard deviation.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/newthinker/tsdash/internal/cache"
	"github.com/newthinker/tsdash/internal/core"
	"github.com/newthinker/tsdash/internal/indicator"
	"github.com/newthinker/tsdash/internal/metrics"
	"github.com/newthinker/tsdash/internal/timeseries"
	"go.uber.org/zap"
)

// Source provides daily bars per ticker. dataset.Loader implements it.
type Source interface {
	Bars(ctx context.Context, ticker string) ([]core.Bar, error)
	Tickers(ctx context.Context) ([]core.Ticker, error)
	Reload(ctx context.Context) error
}

// Config holds the analysis parameters.
type Config struct {
	Tickers  []string
	Period   int
	Window   int
	CacheTTL time.Duration
}

// Analyzer computes reports, caching the monthly series of each ticker.
type Analyzer struct {
	cfg     Config
	source  Source
	cache   cache.Cache
	metrics *metrics.Registry
	logger  *zap.Logger
	now     func() time.Time
}

// New creates an analyzer. cache and reg may be nil.
func New(cfg Config, source Source, c cache.Cache, reg *metrics.Registry, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Period <= 0 {
		cfg.Period = timeseries.DefaultPeriod
	}
	if cfg.Window <= 0 {
		cfg.Window = indicator.DefaultWindow
	}
	return &Analyzer{
		cfg:     cfg,
		source:  source,
		cache:   c,
		metrics: reg,
		logger:  logger,
		now:     time.Now,
	}
}

// Config returns the effective analysis parameters.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// Tickers returns the configured tickers in configuration order, with
// name and industry filled in from the dataset when present.
func (a *Analyzer) Tickers(ctx context.Context) ([]core.Ticker, error) {
	known, err := a.source.Tickers(ctx)
	if err != nil {
		return nil, err
	}
	meta := make(map[string]core.Ticker, len(known))
	for _, t := range known {
		meta[t.Symbol] = t
	}

	tickers := make([]core.Ticker, 0, len(a.cfg.Tickers))
	for _, symbol := range a.cfg.Tickers {
		t, ok := meta[symbol]
		if !ok {
			t = core.Ticker{Symbol: symbol, Name: symbol}
		}
		tickers = append(tickers, t)
	}
	return tickers, nil
}

// Monthly returns the gap-filled month-end mean closing price of ticker
// over the whole dataset.
func (a *Analyzer) Monthly(ctx context.Context, ticker string) (*timeseries.Series, error) {
	if err := a.checkTicker(ticker); err != nil {
		return nil, err
	}

	key := cacheKey(ticker)
	if a.cache != nil {
		var cached timeseries.Series
		err := a.cache.Get(ctx, key, &cached)
		switch {
		case err == nil:
			a.recordCacheLookup(true)
			return &cached, nil
		case !errors.Is(err, cache.ErrMiss):
			a.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		a.recordCacheLookup(false)
	}

	bars, err := a.source.Bars(ctx, ticker)
	if err != nil {
		return nil, err
	}

	monthly := timeseries.FromBars(ticker, bars).
		Interpolate().
		ResampleMonthly().
		Interpolate()
	if monthly.Len() < 2 {
		return nil, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("ticker %s has %d month(s) of data", ticker, monthly.Len()))
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, monthly, a.cfg.CacheTTL); err != nil {
			a.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
		}
	}
	return monthly, nil
}

// Analyze builds the report for one ticker and date range. A failed
// decomposition is reported on the Report rather than as an error.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	report, err := a.analyze(ctx, req)

	status := "ok"
	if err != nil {
		status = "error"
	}
	if a.metrics != nil {
		a.metrics.RecordAnalysis(req.Ticker, status, time.Since(start).Seconds())
	}
	if err != nil {
		a.logger.Debug("analysis failed",
			zap.String("ticker", req.Ticker),
			zap.Stringer("range", req.Range()),
			zap.Error(err),
		)
	}
	return report, err
}

func (a *Analyzer) analyze(ctx context.Context, req Request) (*Report, error) {
	if err := a.Validate(req); err != nil {
		return nil, err
	}

	monthly, err := a.Monthly(ctx, req.Ticker)
	if err != nil {
		return nil, err
	}

	window := monthly.Slice(req.Range())
	window.Name = req.Ticker
	if window.Len() == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("%s has no observations in %s", req.Ticker, req.Range()))
	}

	report := &Report{
		Ticker:      req.Ticker,
		Range:       req.Range(),
		Monthly:     window,
		Stats:       window.Summary(),
		Period:      a.cfg.Period,
		Window:      a.cfg.Window,
		GeneratedAt: a.now().UTC(),
	}

	decomp, err := timeseries.Decompose(window, a.cfg.Period)
	if err != nil {
		report.DecompositionError = err.Error()
		report.DecompositionCode = errorCode(err)
		if a.metrics != nil {
			a.metrics.RecordDecompositionFailure(report.DecompositionCode)
		}
		a.logger.Info("decomposition skipped",
			zap.String("ticker", req.Ticker),
			zap.Stringer("range", req.Range()),
			zap.Error(err),
		)
	} else {
		report.Decomposition = decomp
	}

	rolling := indicator.Rolling(window.Values, a.cfg.Window)
	report.RollingMean = derived(window, "rolling_mean", rolling.Mean())
	report.RollingStd = derived(window, "rolling_std", rolling.StdDev())

	return report, nil
}

// Validate checks that the ticker is configured and the range is ordered.
func (a *Analyzer) Validate(req Request) error {
	if err := a.checkTicker(req.Ticker); err != nil {
		return err
	}
	return req.Range().Validate()
}

// Reload re-reads the dataset and drops cached monthly series.
func (a *Analyzer) Reload(ctx context.Context) error {
	if err := a.source.Reload(ctx); err != nil {
		if a.metrics != nil {
			a.metrics.RecordDatasetLoad("error")
		}
		return err
	}
	if a.metrics != nil {
		a.metrics.RecordDatasetLoad("ok")
	}
	if a.cache == nil {
		return nil
	}
	if err := a.cache.Flush(ctx); err != nil {
		return fmt.Errorf("flushing cache: %w", err)
	}
	return nil
}

func (a *Analyzer) checkTicker(ticker string) error {
	if !slices.Contains(a.cfg.Tickers, ticker) {
		return core.WrapError(core.ErrTickerUnknown, fmt.Errorf("%q", ticker))
	}
	return nil
}

func (a *Analyzer) recordCacheLookup(hit bool) {
	if a.metrics != nil {
		a.metrics.RecordCacheLookup(hit)
	}
}

func cacheKey(ticker string) string {
	return "monthly:" + ticker
}

func derived(base *timeseries.Series, name string, values []float64) *timeseries.Series {
	ts := make([]time.Time, len(base.Timestamps))
	copy(ts, base.Timestamps)
	return &timeseries.Series{Name: name, Timestamps: ts, Values: values}
}

func errorCode(err error) string {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr.Code
	}
	return "UNKNOWN"
}
