package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/poll-lab/pollboard/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pollboard",
	Short: "Poll observation reconciliation and dashboard service",
	Long:  "Ingests Korean election poll observations from official filings and press articles, reconciles overlapping sources into one canonical row per question, and serves the dashboard feeds.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
