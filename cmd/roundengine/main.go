package main

import (
	"context"
	"log"

	"github.com/rawblock/round-engine/internal/api"
	"github.com/rawblock/round-engine/internal/config"
	"github.com/rawblock/round-engine/internal/delegates"
	"github.com/rawblock/round-engine/internal/engine"
	"github.com/rawblock/round-engine/internal/eventbus"
	"github.com/rawblock/round-engine/internal/roundops"
	"github.com/rawblock/round-engine/internal/store"
	"github.com/rawblock/round-engine/internal/store/postgres"
)

func main() {
	log.Println("Starting RawBlock Round Lifecycle Engine...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: config: %v", err)
	}

	pg, err := postgres.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: failed to connect to PostgreSQL: %v", err)
	}
	defer pg.Close()

	if err := pg.InitSchema(context.Background()); err != nil {
		log.Fatalf("FATAL: schema init failed: %v", err)
	}

	bus := eventbus.New()
	go bus.Hub().Run()

	seedSource := delegates.NewPayloadHashSeedSource(pg, cfg.ActiveDelegates)
	slate := delegates.NewProvider(pg, cfg.ActiveDelegates, cfg.DposV2First, seedSource)

	state := engine.NewAppState()
	eng := engine.New(pg, pg, slate, cfg.ActiveDelegates, cfg.DposV2First, state, bus)
	eng.OnBlockchainReady()

	exec := roundops.NewStoreExecutor(pg, pg)

	srv := &api.Server{
		Engine: eng,
		Blocks: pg,
		Bus:    bus,
		Exec:   exec,
		BeginTx: func(ctx context.Context) (store.Txn, api.CommitRollback, error) {
			tx, err := pg.Begin(ctx)
			if err != nil {
				return nil, api.CommitRollback{}, err
			}
			return tx, api.CommitRollback{
				Commit:   tx.Commit,
				Rollback: tx.Rollback,
			}, nil
		},
	}

	r := api.SetupRouter(srv, cfg.APIAuthToken)

	log.Printf("Round engine running on :%s (N=%d, dposV2First=%d)\n", cfg.Port, cfg.ActiveDelegates, cfg.DposV2First)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
