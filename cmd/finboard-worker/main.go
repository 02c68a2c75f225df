// Command finboard-worker consumes summary.refreshed events and mirrors the
// latest summary into a Google Sheets tab.
package main

import (
	"context"
	"os"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/backend"
	"finboard/internal/cli"
	"finboard/internal/core"
	"finboard/internal/export/sheets"
	"finboard/internal/log"
	"finboard/internal/worker"
)

const resubscribeDelay = 5 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentSheets)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if err := cfg.ValidateSheets(); err != nil {
		logger.Error("Sheets configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	writer, err := sheets.New(startCtx, sheets.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPRoutingKey, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	mirror := worker.NewSheetsMirror(writer, logger.Logger)

	// The startup load must not publish, or the worker would consume its
	// own event.
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Warn("Invalid backend configuration, skipping startup sync", log.FieldError, err)
	} else {
		bc.AMQPURL = ""
		res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).Create(startCtx, bc)
		if err != nil {
			logger.Warn("Backend unavailable, skipping startup sync", log.FieldError, err)
		} else {
			if res.Credentials.IsComplete() {
				logger.Info("Performing startup sync")
				load := func(ctx context.Context) (core.Summary, error) {
					return res.Dashboard.Load(ctx, res.Credentials.Current())
				}
				if err := mirror.StartupSync(startCtx, load); err != nil {
					logger.Error("Startup sync failed", log.FieldError, err)
				}
			} else {
				logger.Info("No stored credentials, skipping startup sync")
			}
			if err := res.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) error {
		stats := mirror.Stats()
		logger.Info("Worker stats", "written", stats.Written, "stale", stats.Stale, "failed", stats.Failed)
		return consumer.Close()
	})

	logger.Info("Starting finboard-worker",
		log.FieldOperation, log.OpStartup,
		"queue", cfg.AMQPQueue,
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	for {
		err := consumer.ConsumeSummaries(ctx, mirror.HandleSummary)
		if ctx.Err() != nil {
			break
		}
		// The client reconnects on its own; subscribe again once it has.
		logger.Warn("Message consumption stopped, resubscribing", log.FieldError, err, "delay", resubscribeDelay.String())
		select {
		case <-ctx.Done():
		case <-time.After(resubscribeDelay):
		}
		if ctx.Err() != nil {
			break
		}
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
