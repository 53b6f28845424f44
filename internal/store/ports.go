package store

import (
	"context"

	"contas/internal/core"
)

// Ports for entry persistence adapters.
type (
	// EntryReader exposes the entry set as snapshots.
	EntryReader interface {
		// Subscribe emits the current snapshot immediately and a fresh one after
		// every successful mutation. The channel is closed when ctx is done.
		Subscribe(ctx context.Context, f Filter) (<-chan core.Snapshot, error)
		// Snapshot returns the current snapshot without subscribing.
		Snapshot(ctx context.Context, f Filter) (core.Snapshot, error)
		Get(ctx context.Context, id string) (core.Entry, error)
	}

	// EntryWriter mutates single entries. Failures are *core.PersistenceError.
	EntryWriter interface {
		Create(ctx context.Context, e core.Entry) (id string, err error)
		Update(ctx context.Context, id string, p core.Patch) error
		Delete(ctx context.Context, id string) error
	}

	EntryStore interface {
		EntryReader
		EntryWriter
	}
)

// Filter narrows a snapshot. The zero value matches every entry.
type Filter struct {
	Category core.Category
}

func (f Filter) Validate() error {
	if f.Category == "" {
		return nil
	}
	if err := f.Category.Validate(); err != nil {
		return core.NewValidationError("category", err)
	}
	return nil
}

func (f Filter) Match(e core.Entry) bool {
	return f.Category == "" || e.Category == f.Category
}

// Apply returns a copy of s holding only the matching entries.
func (f Filter) Apply(s core.Snapshot) core.Snapshot {
	out := core.Snapshot{Version: s.Version, TakenAt: s.TakenAt, Entries: make([]core.Entry, 0, len(s.Entries))}
	for _, e := range s.Entries {
		if f.Match(e) {
			out.Entries = append(out.Entries, e)
		}
	}
	return out
}

// Refresher is implemented by stores whose backing database can be changed
// by other processes. Refresh republishes the snapshot when it changed.
type Refresher interface {
	Refresh(ctx context.Context) (changed bool, err error)
}
