package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/poll-lab/pollboard/internal/model"
)

var (
	reconcileInputPath string
	reconcileAsOf      string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run canonical selection over a JSON row dump",
	Long:  "Reads observation rows from a JSON file, applies noise and cutoff filtering, and prints one canonical selection per question to stdout.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}

		rows, err := readObservations(reconcileInputPath)
		if err != nil {
			return err
		}
		rows = filterAsOf(rows, reconcileAsOf)

		engine, err := buildEngine()
		if err != nil {
			return err
		}

		selections := engine.Selector.Select(cmd.Context(), rows)

		zap.L().Info("reconcile complete",
			zap.Int("rows", len(rows)),
			zap.Int("selections", len(selections)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(selections)
	},
}

// readObservations decodes a JSON array of observation rows.
func readObservations(path string) ([]model.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: open input")
	}
	defer f.Close()

	var rows []model.Observation
	if err := json.NewDecoder(f).Decode(&rows); err != nil {
		return nil, eris.Wrap(err, "reconcile: decode input")
	}
	return rows, nil
}

// filterAsOf drops rows whose survey end falls after the given instant.
// An empty or unparseable value keeps every row.
func filterAsOf(rows []model.Observation, asOf string) []model.Observation {
	cut := model.ParseInstant(asOf)
	if cut == nil {
		return rows
	}
	out := rows[:0]
	for _, row := range rows {
		if row.SurveyEndDate != nil && row.SurveyEndDate.After(*cut) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileInputPath, "input", "", "path to observation rows JSON file (required)")
	reconcileCmd.Flags().StringVar(&reconcileAsOf, "as-of", "", "only consider rows surveyed at or before this instant")
	_ = reconcileCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(reconcileCmd)
}
