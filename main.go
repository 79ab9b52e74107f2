package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"page-scraper/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "scraper",
	Short: "Paginated HTML scrapers",
	Long:  "Scrapes books, quotes or a configured site page by page, prints a summary and saves the records.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		c, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			c = config.Default()
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			fmt.Fprintf(os.Stderr, "init logger: %v, using development logger\n", err)
			logger, _ := zap.NewDevelopment()
			zap.ReplaceGlobals(logger)
		}
		if loadErr != nil {
			zap.L().Warn("failed to load config, using defaults",
				zap.String("path", cfgPath), zap.Error(loadErr))
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath, "Path to configuration file")
	rootCmd.AddCommand(booksCmd, quotesCmd, customCmd, configCmd, runsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Failures are logged; the exit status is always 0
	_ = rootCmd.ExecuteContext(ctx)
}
