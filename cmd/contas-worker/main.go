package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"contas/internal/backend"
	"contas/internal/cache"
	"contas/internal/cli"
	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/services"
	"contas/internal/worker"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run wires the worker and blocks until shutdown. Deferred cleanup runs
// before main decides the exit status.
func run() error {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger("info", "text", log.ComponentWorker).Logger, "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentWorker)
	logger.InfoContext(context.Background(), "Starting contas-worker",
		"backend", cfg.DataBackend,
		"poll_interval", cfg.ExportPollInterval,
		"sheets_enabled", cfg.SheetsEnabled(),
		"amqp_enabled", cfg.AMQPEnabled())

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger.Logger, "Invalid backend configuration", err)
	}
	factory := backend.NewFactory(logger.Logger)

	res, err := factory.CreateBackend(context.Background(), bcfg)
	if err != nil {
		cli.Fatal(logger.Logger, "Failed to initialize backend", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.ErrorContext(context.Background(), "Failed to close backend", "error", err)
		}
	}()
	if res.Refresher == nil {
		logger.WarnContext(context.Background(), "Backend is not shared between processes, only changes made by this worker are exported",
			"backend", cfg.DataBackend)
	}

	reports, err := factory.CreateReportWriter(context.Background(), bcfg)
	if err != nil {
		cli.Fatal(logger.Logger, "Failed to initialize report writer", err)
	}

	views := services.NewViewService(res.Store,
		cache.NewLRUCache[services.ViewKey, core.View](cfg.ViewCacheSize, cfg.ViewCacheTTL))
	caches := cache.NewManager()
	caches.Register(views.Cache())
	caches.StartCleanup(cfg.ViewCacheTTL)
	defer caches.Stop()

	exportWorker := worker.NewExportWorker(res.Store, views, reports, res.Refresher, worker.ExportWorkerConfig{
		PollInterval: cfg.ExportPollInterval,
	})

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, exportWorker.Stop)

	if err := exportWorker.Start(ctx); err != nil {
		cli.Fatal(logger.Logger, "Failed to start export worker", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-exportWorker.Done():
			if ctx.Err() == nil {
				return errors.New("export worker exited unexpectedly")
			}
		case <-gctx.Done():
		}
		return nil
	})
	if res.AMQP != nil {
		g.Go(func() error {
			err := res.AMQP.ConsumeEntryChanges(gctx, exportWorker.HandleChange)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		logger.InfoContext(ctx, "Skipping AMQP consumption, relying on periodic refresh")
	}

	if err := g.Wait(); err != nil {
		logger.ErrorContext(context.Background(), "Worker failed", "error", err)
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = exportWorker.Stop(stopCtx)
		return err
	}
	<-done
	return nil
}
