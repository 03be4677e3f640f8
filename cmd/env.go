package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/poll-lab/pollboard/internal/reconcile"
	"github.com/poll-lab/pollboard/internal/store"
)

// openStore builds the configured storage backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Store.Driver)
	}
}

// buildEngine assembles the reconciliation engine from configuration.
func buildEngine() (*reconcile.Engine, error) {
	cutoff, err := cfg.Engine.CutoffTime()
	if err != nil {
		return nil, err
	}
	return reconcile.NewEngine(reconcile.Options{
		Cutoff:           cutoff,
		CycleYear:        cfg.Engine.CycleYear,
		AggregatorLabels: cfg.Engine.AggregatorLabels,
		LexiconFile:      cfg.Engine.LexiconFile,
	})
}
