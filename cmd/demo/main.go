package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shubham-shewale/pricefeed/pkg/config"
	"github.com/shubham-shewale/pricefeed/pkg/feed"
)

var (
	flagSymbol   string
	flagWorkers  int
	flagTimeout  time.Duration
	flagFail     bool
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted price feed session and print every notification",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&flagSymbol, "symbol", "AMZN",
		"symbol of the demo feed")
	rootCmd.Flags().IntVar(&flagWorkers, "workers", feed.DefaultWorkers,
		"notification workers")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", time.Second,
		"how long shutdown waits for pending notifications")
	rootCmd.Flags().BoolVar(&flagFail, "fail", false,
		"register a listener that fails on every update")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "warn",
		"log level for feed diagnostics")
}

func run(cmd *cobra.Command, _ []string) error {
	logger, err := config.NewLogger(config.LoggerConfig{
		Level:       flagLogLevel,
		Encoding:    "console",
		Development: true,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	report, err := runDemo(cmd.OutOrStdout(), demoOptions{
		Symbol:  flagSymbol,
		Workers: flagWorkers,
		Timeout: flagTimeout,
		Pause:   200 * time.Millisecond,
		Fail:    flagFail,
	}, logger)
	if err != nil {
		return err
	}

	if !report.Drained {
		logger.Warn("Shutdown timed out", zap.Int("cancelled", report.Cancelled))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Feed shut down.")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
