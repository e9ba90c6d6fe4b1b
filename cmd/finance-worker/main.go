package main

import (
	"io"
	"os"

	"finance/internal/amqp"
	"finance/internal/backend"
	"finance/internal/cli"
	"finance/internal/log"
	"finance/internal/store/google"
	"finance/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting finance-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.SheetsConfigured() {
		logger.Error("Google Sheets mirror is not configured: set GOOGLE_SPREADSHEET_ID and credentials")
		os.Exit(1)
	}
	if cfg.DataBackend == string(backend.SheetsBackend) {
		logger.Error("The sheets backend is already the spreadsheet; there is nothing to mirror")
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	source, err := backend.NewFactory(logger).OpenRepository(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to open source store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if c, ok := source.(io.Closer); ok {
		defer c.Close()
	}

	mirror, err := google.New(ctx, backendConfig.SheetsOptions())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	var consumer worker.EventConsumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		consumer = client
	} else {
		logger.Info("AMQP disabled, mirror is kept by periodic reconcile only")
	}

	syncWorker := worker.NewSyncWorker(source, mirror, cfg.SyncInterval)
	logger.Info("Sync worker running", "interval", cfg.SyncInterval, "events", consumer != nil)
	if err := syncWorker.Run(ctx, consumer); err != nil {
		logger.Error("Sync worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
