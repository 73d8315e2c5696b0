package main

import (
	"fmt"
	"strings"

	"github.com/newthinker/tsdash/internal/collector/yahoo"
	"github.com/newthinker/tsdash/internal/core"
	"github.com/newthinker/tsdash/internal/logger"
	"github.com/spf13/cobra"
)

var (
	fetchTickers []string
	fetchStart   string
	fetchEnd     string
	fetchMerge   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download daily history and write the dataset",
	Long: `Fetch downloads daily prices from Yahoo Finance and writes them to the
configured dataset object. With --merge, rows of tickers that were not
fetched are kept.`,
	Example: `  tsdash fetch --tickers AAPL,AMZN --start 2018-01-01 --end 2022-12-31
  tsdash fetch --tickers TSLA --merge`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringSliceVar(&fetchTickers, "tickers", nil, "tickers to download (default from config)")
	fetchCmd.Flags().StringVar(&fetchStart, "start", "", "start date YYYY-MM-DD (default from config)")
	fetchCmd.Flags().StringVar(&fetchEnd, "end", "", "end date YYYY-MM-DD (default from config)")
	fetchCmd.Flags().BoolVar(&fetchMerge, "merge", false, "keep rows of other tickers already in the dataset")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	a, cfg, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	tickers := fetchTickers
	if len(tickers) == 0 {
		tickers = cfg.Analysis.Tickers
	}
	for i, t := range tickers {
		tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}

	rng := a.DefaultRange()
	if fetchStart != "" || fetchEnd != "" {
		start, end := rng.Start.Format(core.DateLayout), rng.End.Format(core.DateLayout)
		if fetchStart != "" {
			start = fetchStart
		}
		if fetchEnd != "" {
			end = fetchEnd
		}
		if rng, err = core.NewDateRange(start, end); err != nil {
			return err
		}
	}

	opts := []yahoo.Option{yahoo.WithTimeout(cfg.Collector.Timeout)}
	if cfg.Collector.BaseURL != "" {
		opts = append(opts, yahoo.WithBaseURL(cfg.Collector.BaseURL))
	}

	result, err := a.Fetch(cmd.Context(), yahoo.New(opts...), tickers, rng, fetchMerge)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, t := range tickers {
		fmt.Fprintf(out, "%-6s %d rows\n", t, result.Rows[t])
	}
	if fetchMerge {
		fmt.Fprintf(out, "kept %d existing rows\n", result.Kept)
	}
	fmt.Fprintf(out, "wrote %d rows to %s\n", result.Written, cfg.Dataset.Path)
	return nil
}
