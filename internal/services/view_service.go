package services

import (
	"context"
	"time"

	"contas/internal/cache"
	"contas/internal/core"
	"contas/internal/ledger"
	"contas/internal/metrics"
	"contas/internal/store"
)

// ViewKey identifies a derived month view. A snapshot version fully
// determines its entries, so the key fully determines the view.
type ViewKey struct {
	Version  uint64
	Category core.Category
	Month    core.Month
}

// ViewService derives month views from store snapshots, memoizing by ViewKey.
type ViewService struct {
	reader store.EntryReader
	views  *cache.LRUCache[ViewKey, core.View]
}

func NewViewService(reader store.EntryReader, views *cache.LRUCache[ViewKey, core.View]) *ViewService {
	if views == nil {
		views = cache.NewLRUCache[ViewKey, core.View](64, 5*time.Minute)
	}
	return &ViewService{reader: reader, views: views}
}

// Cache exposes the view cache for periodic cleanup registration.
func (v *ViewService) Cache() *cache.LRUCache[ViewKey, core.View] {
	return v.views
}

// View returns the month view for the current snapshot.
func (v *ViewService) View(ctx context.Context, m core.Month, category core.Category) (core.View, error) {
	f := store.Filter{Category: category}
	if err := f.Validate(); err != nil {
		return core.View{}, err
	}
	snap, err := v.reader.Snapshot(ctx, f)
	if err != nil {
		return core.View{}, storeErr("snapshot", "", err)
	}
	return v.Build(snap, m, category), nil
}

// Build derives the view of s, served from cache when s.Version was seen before.
func (v *ViewService) Build(s core.Snapshot, m core.Month, category core.Category) core.View {
	key := ViewKey{Version: s.Version, Category: category, Month: m}
	view, cached := v.views.GetOrCompute(key, func() core.View {
		start := time.Now()
		defer func() { metrics.ViewBuildSeconds.Observe(time.Since(start).Seconds()) }()
		return ledger.BuildView(s, m, category)
	})
	if cached {
		metrics.ViewBuilds.WithLabelValues("hit").Inc()
	} else {
		metrics.ViewBuilds.WithLabelValues("miss").Inc()
		metrics.SnapshotEntries.Set(float64(len(s.Entries)))
	}
	return view
}

// Stream emits a fresh month view for every snapshot the store publishes.
// The channel closes when ctx is done or the store ends the subscription.
func (v *ViewService) Stream(ctx context.Context, m core.Month, category core.Category) (<-chan core.View, error) {
	snaps, err := v.reader.Subscribe(ctx, store.Filter{Category: category})
	if err != nil {
		return nil, storeErr("subscribe", "", err)
	}

	out := make(chan core.View)
	go func() {
		defer close(out)
		for s := range snaps {
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- v.Build(s, m, category):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
