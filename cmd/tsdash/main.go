package main

import (
	"fmt"
	"os"

	"github.com/newthinker/tsdash/internal/app"
	"github.com/newthinker/tsdash/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "tsdash",
	Short: "tsdash - stock time series dashboard",
	Long: `tsdash resamples daily closing prices to monthly averages and shows
summary statistics, a seasonal decomposition and rolling statistics
for a selected ticker and date range.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --config when given, otherwise defaults plus
// TSDASH_* environment overrides, and validates the result.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg, err = config.FromEnv()
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		log.Debug("no config file specified, using defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newApp loads the configuration and builds the application services.
func newApp(log *zap.Logger) (*app.App, *config.Config, error) {
	cfg, err := loadConfig(log)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}
