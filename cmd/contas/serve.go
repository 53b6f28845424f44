package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"contas/internal/cache"
	apphttp "contas/internal/http"
	"contas/internal/store"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the JSON API, the view event stream and Prometheus metrics.

With the SQLite backend the server also reloads the database on every
EXPORT_POLL_INTERVAL so changes made by other processes reach open streams.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	res, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer closeBackend(context.Background(), res)

	views := newViewService(res)
	caches := cache.NewManager()
	caches.Register(views.Cache())
	caches.StartCleanup(appCfg.ViewCacheTTL)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+appCfg.Port, apphttp.Deps{
		Entries: res.Entries,
		Views:   views,
		Logger:  logger,
		Ready:   readiness(res.Store),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "Starting contas server",
			"port", appCfg.Port,
			"backend", appCfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.InfoContext(context.Background(), "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if res.Refresher != nil {
		g.Go(func() error {
			refreshLoop(gctx, res.Refresher, appCfg.ExportPollInterval)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.InfoContext(context.Background(), "Server stopped gracefully")
	return nil
}

// readiness pings stores backed by a database; other stores are always ready.
func readiness(st store.EntryStore) func(context.Context) error {
	p, ok := st.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return p.Ping
}

func refreshLoop(ctx context.Context, r store.Refresher, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := r.Refresh(ctx)
			if err != nil {
				logger.WarnContext(ctx, "Store refresh failed", "error", err)
				continue
			}
			if changed {
				logger.DebugContext(ctx, "Store reloaded after external change")
			}
		}
	}
}
