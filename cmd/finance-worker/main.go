package main

import (
	"context"
	"os"
	"time"

	"nomadfinance/internal/amqp"
	"nomadfinance/internal/cli"
	"nomadfinance/internal/config"
	"nomadfinance/internal/log"
	"nomadfinance/internal/sheets"
	gsheet "nomadfinance/internal/sheets/google"
	"nomadfinance/internal/sheets/memory"
	"nomadfinance/internal/worker"
)

func main() {
	cfg := cli.LoadConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting finance-worker")

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	exporter, err := newExporter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize exporter", log.FieldError, err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewExportWorker(exporter, logger)
	if err := w.Run(ctx, client); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

// newExporter connects to the spreadsheet. Dev mode without a spreadsheet
// exports to memory so the queue can be exercised locally.
func newExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.Exporter, error) {
	if cfg.DevMode && cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled, exporting to memory")
		return memory.New(), nil
	}

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := gsheet.New(startCtx, gsheet.Options{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleSheetName,
		Credentials: gsheet.Credentials{
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			OAuthClientJSON:    cfg.GoogleOAuthClientJSON,
			OAuthClientFile:    cfg.GoogleOAuthClientFile,
			OAuthTokenJSON:     cfg.GoogleOAuthTokenJSON,
			OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	if err := client.EnsureHeader(startCtx); err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
	return client, nil
}
