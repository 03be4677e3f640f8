package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/poll-lab/pollboard/internal/store"
)

// Service writes decoded payloads through the store under a tracked run.
type Service struct {
	store store.Store
}

// NewService creates an ingest service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Result summarizes one ingest run.
type Result struct {
	RunID       string `json:"run_id"`
	RecordCount int    `json:"record_count"`
}

// Run persists every record of the payload. The run is marked failed if
// any record cannot be written; records before the failure stay
// persisted, matching the upsert semantics of re-runs.
func (s *Service) Run(ctx context.Context, payload *Payload) (*Result, error) {
	run, err := s.store.CreateIngestRun(ctx, payload.RunType, payload.ExtractorVersion)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: create run")
	}

	written := 0
	for i, in := range payload.Records {
		rec := toStoreRecord(in)
		rowID, err := s.store.UpsertRecord(ctx, rec)
		if err != nil {
			if cerr := s.store.CompleteIngestRun(ctx, run.ID, store.IngestRunFailed, written); cerr != nil {
				zap.L().Warn("ingest: mark run failed", zap.String("run_id", run.ID), zap.Error(cerr))
			}
			return nil, eris.Wrapf(err, "ingest: record %d (%s)", i, in.Observation.ObservationKey)
		}
		written++
		zap.L().Debug("ingest: record written",
			zap.String("run_id", run.ID),
			zap.String("observation_key", in.Observation.ObservationKey),
			zap.Int64("row_id", rowID),
			zap.Int("options", len(rec.Options)))
	}

	if err := s.store.CompleteIngestRun(ctx, run.ID, store.IngestRunComplete, written); err != nil {
		return nil, eris.Wrap(err, "ingest: complete run")
	}

	zap.L().Info("ingest: run complete",
		zap.String("run_id", run.ID),
		zap.String("run_type", payload.RunType),
		zap.Int("records", written))

	return &Result{RunID: run.ID, RecordCount: written}, nil
}
