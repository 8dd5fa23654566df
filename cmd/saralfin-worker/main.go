package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"saralfin/internal/amqp"
	"saralfin/internal/cli"
	applog "saralfin/internal/log"
	"saralfin/internal/sheets"
	gsheet "saralfin/internal/sheets/google"
	memsheet "saralfin/internal/sheets/memory"
	"saralfin/internal/worker"
)

const statsInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.ApplyLogLevel(cfg, applog.ComponentWorker)

	logger.Info("Starting saralfin-worker")

	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var mirror sheets.TransactionMirror
	if cfg.MirrorEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		mirror = memsheet.New()
		logger.Info("Google Sheets disabled - mirroring to memory")
	}

	mirrorWorker := worker.NewMirrorWorker(mirror)

	// Bring the mirror up to date with anything recorded while the worker was down.
	st, backendRes := cli.OpenStore(ctx, logger, cfg)
	if err := mirrorWorker.Backfill(ctx, st.Transactions()); err != nil {
		logger.Error("Mirror backfill failed", "error", err)
	}
	if backendRes.Cleanup != nil {
		if err := backendRes.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", "error", err)
		}
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := amqpClient.ConsumeTransactionEvents(gctx, cfg.WorkerConcurrency, mirrorWorker.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s := mirrorWorker.Stats()
				logger.Info("Mirror worker stats", "applied", s.Applied, "failed", s.Failed)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	s := mirrorWorker.Stats()
	logger.Info("saralfin-worker stopped gracefully", "applied", s.Applied, "failed", s.Failed)
}
