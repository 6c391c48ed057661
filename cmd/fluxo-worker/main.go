package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fluxo/internal/amqp"
	"fluxo/internal/backend"
	"fluxo/internal/cli"
	"fluxo/internal/core"
	"fluxo/internal/services"
	"fluxo/internal/sheets"
	gsheet "fluxo/internal/sheets/google"
	memmirror "fluxo/internal/sheets/memory"
	"fluxo/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap()
	loc := cli.MustLocation(logger, cfg)
	logger.Info("Starting fluxo-worker")

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger.Logger).CreateStore(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	var mirror sheets.LedgerMirror
	if cfg.MirrorEnabled() {
		client, err := gsheet.NewClient(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = memmirror.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, mirroring in memory")
	}

	mw := worker.NewMirrorWorker(store, mirror, services.NewReconciler(store), cfg.MirrorBatchSize)
	now := func() time.Time { return time.Now().In(loc) }

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Catch up on anything published while the worker was down.
	since := core.DateOf(now()).AddDays(-cfg.ReconcileLookbackDays)
	if n, err := mw.Backfill(ctx, since); err != nil {
		logger.Error("Startup backfill failed", "error", err)
	} else {
		logger.Info("Startup backfill complete", "mirrored", n, "since", since.String())
	}

	go mw.RunReconcileLoop(ctx, cfg.ReconcileInterval, cfg.ReconcileLookbackDays, now)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		go func() {
			if err := client.Consume(ctx, mw.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
