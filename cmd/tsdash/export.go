package main

import (
	"fmt"
	"strings"

	"github.com/newthinker/tsdash/internal/analysis"
	"github.com/newthinker/tsdash/internal/logger"
	"github.com/spf13/cobra"
)

var (
	exportTicker string
	exportStart  string
	exportEnd    string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the monthly report of a ticker as CSV",
	Long: `Export writes the monthly series of one ticker with its trend,
seasonal, residual and rolling columns into the dataset storage.`,
	Example: `  tsdash export --ticker AAPL --out monthly/AAPL.csv`,
	RunE:    runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportTicker, "ticker", "AAPL", "ticker symbol")
	exportCmd.Flags().StringVar(&exportStart, "start", "", "start date YYYY-MM-DD (default from config)")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "end date YYYY-MM-DD (default from config)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "object path (default monthly/<TICKER>.csv)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	a, _, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	ticker := strings.ToUpper(exportTicker)
	req, err := analysis.NewRequest(ticker, exportStart, exportEnd, a.DefaultRange())
	if err != nil {
		return err
	}

	out := exportOut
	if out == "" {
		out = fmt.Sprintf("monthly/%s.csv", ticker)
	}

	report, err := a.Export(cmd.Context(), req, out)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d months of %s to %s\n", report.Monthly.Len(), ticker, out)
	return nil
}
