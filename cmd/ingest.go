package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/poll-lab/pollboard/internal/ingest"
)

var ingestInputPath string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load an extraction payload into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		ctx := cmd.Context()

		f, err := os.Open(ingestInputPath)
		if err != nil {
			return eris.Wrap(err, "ingest: open input")
		}
		defer f.Close()

		payload, err := ingest.DecodePayload(f)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := ingest.NewService(st).Run(ctx, payload)
		if err != nil {
			return err
		}

		zap.L().Info("ingest complete",
			zap.String("run_id", result.RunID),
			zap.Int("records", result.RecordCount),
			zap.String("input", ingestInputPath),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestInputPath, "input", "", "path to payload JSON file (required)")
	_ = ingestCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(ingestCmd)
}
