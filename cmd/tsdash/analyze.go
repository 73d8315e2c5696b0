package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/newthinker/tsdash/internal/analysis"
	"github.com/newthinker/tsdash/internal/logger"
	"github.com/newthinker/tsdash/internal/timeseries"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

var (
	analyzeTicker string
	analyzeStart  string
	analyzeEnd    string
	analyzeJSON   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Print statistics and decomposition for a ticker",
	Long: `Analyze resamples the daily closes of one ticker to monthly averages
and prints the summary statistics, a decomposition summary and the
latest rolling mean and standard deviation.`,
	Example: `  tsdash analyze --ticker AAPL --start 2018-01-01 --end 2022-12-31
  tsdash analyze --ticker TSLA --json`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTicker, "ticker", "AAPL", "ticker symbol")
	analyzeCmd.Flags().StringVar(&analyzeStart, "start", "", "start date YYYY-MM-DD (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeEnd, "end", "", "end date YYYY-MM-DD (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full report as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	a, _, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := analysis.NewRequest(strings.ToUpper(analyzeTicker), analyzeStart, analyzeEnd, a.DefaultRange())
	if err != nil {
		return err
	}

	report, err := a.Analyzer().Analyze(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(out, report)
	return nil
}

func printReport(w io.Writer, r *analysis.Report) {
	fmt.Fprintf(w, "%s %s\n\n", r.Ticker, r.Range)

	fmt.Fprintln(w, "Summary statistics (monthly averages):")
	fmt.Fprintf(w, "  Count: %d\n", r.Stats.Count)
	fmt.Fprintf(w, "  Min:   %s\n", formatValue(r.Stats.Min))
	fmt.Fprintf(w, "  Max:   %s\n", formatValue(r.Stats.Max))
	fmt.Fprintf(w, "  Mean:  %s\n\n", formatValue(r.Stats.Mean))

	fmt.Fprintf(w, "Decomposition (additive, period %d):\n", r.Period)
	if r.HasDecomposition() {
		d := r.Decomposition
		fmt.Fprintf(w, "  Trend:    %s .. %s\n", formatValue(first(d.Trend)), formatValue(last(d.Trend)))
		fmt.Fprintf(w, "  Seasonal: amplitude %s\n", formatValue(amplitude(d.Seasonal)))
		fmt.Fprintf(w, "  Residual: std %s\n\n", formatValue(stdDev(d.Residual)))
	} else {
		fmt.Fprintf(w, "  unavailable: %s\n\n", r.DecompositionError)
	}

	fmt.Fprintf(w, "Rolling statistics (window %d):\n", r.Window)
	fmt.Fprintf(w, "  Mean: %s\n", formatValue(last(r.RollingMean)))
	fmt.Fprintf(w, "  Std:  %s\n", formatValue(last(r.RollingStd)))
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func first(s *timeseries.Series) float64 {
	if s == nil {
		return math.NaN()
	}
	_, vals := s.Finite()
	if len(vals) == 0 {
		return math.NaN()
	}
	return vals[0]
}

func last(s *timeseries.Series) float64 {
	if s == nil {
		return math.NaN()
	}
	_, vals := s.Finite()
	if len(vals) == 0 {
		return math.NaN()
	}
	return vals[len(vals)-1]
}

func stdDev(s *timeseries.Series) float64 {
	_, vals := s.Finite()
	if len(vals) < 2 {
		return math.NaN()
	}
	return stat.StdDev(vals, nil)
}

func amplitude(s *timeseries.Series) float64 {
	st := s.Summary()
	return st.Max - st.Min
}
