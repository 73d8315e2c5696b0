package dataset

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/newthinker/tsdash/internal/core"
	"github.com/newthinker/tsdash/internal/storage/archive"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader reads the dataset object once and serves per-ticker bars from memory.
type Loader struct {
	store  archive.Storage
	path   string
	opts   Options
	logger *zap.Logger

	// first load is shared by concurrent callers
	load singleflight.Group

	mu       sync.RWMutex
	loaded   bool
	byTicker map[string][]Record
	info     archive.ObjectInfo
	loadedAt time.Time
}

// NewLoader creates a loader for the dataset stored at path.
func NewLoader(store archive.Storage, path string, opts Options, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		store:  store,
		path:   path,
		opts:   opts,
		logger: logger,
	}
}

// Path returns the dataset object path.
func (l *Loader) Path() string {
	return l.path
}

// Reload re-reads the dataset object, replacing the in-memory copy.
func (l *Loader) Reload(ctx context.Context) error {
	start := time.Now()

	info, err := l.store.Stat(ctx, l.path)
	if err != nil {
		return core.WrapError(core.ErrDatasetUnavailable, err)
	}

	rc, err := l.store.Open(ctx, l.path)
	if err != nil {
		return core.WrapError(core.ErrDatasetUnavailable, err)
	}
	defer rc.Close()

	records, err := Decode(rc, l.opts)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", l.path, err)
	}

	byTicker := make(map[string][]Record)
	for _, rec := range records {
		byTicker[rec.Symbol] = append(byTicker[rec.Symbol], rec)
	}

	l.mu.Lock()
	l.byTicker = byTicker
	l.info = info
	l.loaded = true
	l.loadedAt = time.Now()
	l.mu.Unlock()

	l.logger.Info("dataset loaded",
		zap.String("path", l.path),
		zap.Int("rows", len(records)),
		zap.Int("tickers", len(byTicker)),
		zap.Int64("bytes", info.Size),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (l *Loader) ensure(ctx context.Context) error {
	if l.isLoaded() {
		return nil
	}
	_, err, _ := l.load.Do(l.path, func() (any, error) {
		if l.isLoaded() {
			return nil, nil
		}
		return nil, l.Reload(ctx)
	})
	return err
}

func (l *Loader) isLoaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Bars returns the daily bars of ticker in file order. Fewer than two rows
// is reported as ErrInsufficientData.
func (l *Loader) Bars(ctx context.Context, ticker string) ([]core.Bar, error) {
	if err := l.ensure(ctx); err != nil {
		return nil, err
	}

	l.mu.RLock()
	records := l.byTicker[ticker]
	l.mu.RUnlock()

	if len(records) < 2 {
		return nil, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("ticker %s has %d rows in dataset", ticker, len(records)))
	}

	bars := make([]core.Bar, len(records))
	for i, rec := range records {
		bars[i] = rec.Bar
	}
	return bars, nil
}

// Tickers describes every ticker present in the dataset, sorted by symbol.
func (l *Loader) Tickers(ctx context.Context) ([]core.Ticker, error) {
	if err := l.ensure(ctx); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	tickers := make([]core.Ticker, 0, len(l.byTicker))
	for symbol, records := range l.byTicker {
		t := core.Ticker{Symbol: symbol, Name: symbol}
		if last := records[len(records)-1]; last.Brand != "" {
			t.Name = last.Brand
			t.Industry = last.Industry
			t.Country = last.Country
		}
		tickers = append(tickers, t)
	}
	sort.Slice(tickers, func(i, j int) bool {
		return tickers[i].Symbol < tickers[j].Symbol
	})
	return tickers, nil
}

// Info returns metadata of the loaded object and when it was loaded.
func (l *Loader) Info() (archive.ObjectInfo, time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.info, l.loadedAt
}
