package main

import (
	"context"
	"fmt"

	"contas/internal/backend"
	"contas/internal/cache"
	"contas/internal/core"
	"contas/internal/services"
)

// openBackend builds the configured store and entry service. Callers must
// run Cleanup when done.
func openBackend(ctx context.Context) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(appCfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend: %w", err)
	}
	return res, nil
}

func closeBackend(ctx context.Context, res *backend.BackendResult) {
	if res == nil || res.Cleanup == nil {
		return
	}
	if err := res.Cleanup(); err != nil {
		logger.ErrorContext(ctx, "Failed to close backend", "error", err)
	}
}

func newViewService(res *backend.BackendResult) *services.ViewService {
	return services.NewViewService(res.Store,
		cache.NewLRUCache[services.ViewKey, core.View](appCfg.ViewCacheSize, appCfg.ViewCacheTTL))
}

// warnEphemeral reminds the user that memory-backed changes vanish on exit.
func warnEphemeral(ctx context.Context) {
	if backend.BackendType(appCfg.DataBackend) == backend.MemoryBackend {
		logger.WarnContext(ctx, "Memory backend in use, changes are lost when the command exits; set DATA_BACKEND=sqlite to persist")
	}
}
