package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var maplatestInputPath string

var maplatestCmd = &cobra.Command{
	Use:   "maplatest",
	Short: "Run the exclusion gate over a JSON feed dump",
	Long:  "Reads observation rows from a JSON file, applies the per-row exclusion policy, and prints the surviving rows with the exclusion ledger to stdout.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}

		rows, err := readObservations(maplatestInputPath)
		if err != nil {
			return err
		}

		engine, err := buildEngine()
		if err != nil {
			return err
		}

		result := engine.Gate.Apply(rows)

		zap.L().Info("gate pass complete",
			zap.Int("rows", result.Stats.TotalCount),
			zap.Int("kept", result.Stats.KeptCount),
			zap.Int("excluded", result.Stats.ExcludedCount),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	maplatestCmd.Flags().StringVar(&maplatestInputPath, "input", "", "path to observation rows JSON file (required)")
	_ = maplatestCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(maplatestCmd)
}
