// Package memory is an in-process EntryStore used for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"contas/internal/core"
	"contas/internal/store"
)

type Store struct {
	mu      sync.Mutex
	entries map[string]core.Entry
	version uint64
	hub     *store.Broadcaster
	now     func() time.Time
}

func New() *Store {
	return &Store{
		entries: make(map[string]core.Entry),
		hub:     store.NewBroadcaster(),
		now:     time.Now,
	}
}

// NewWithEntries seeds the store. Entries without an ID get one assigned.
func NewWithEntries(entries []core.Entry) *Store {
	s := New()
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.now().UTC()
		}
		s.entries[e.ID] = e
	}
	return s
}

// Create stores the entry under a fresh ID.
func (s *Store) Create(ctx context.Context, e core.Entry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", core.NewPersistenceError("create", "", err)
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.NewString()
	e.CreatedAt = s.now().UTC()
	s.entries[e.ID] = e
	s.publishLocked()
	return e.ID, nil
}

func (s *Store) Update(ctx context.Context, id string, p core.Patch) error {
	if err := ctx.Err(); err != nil {
		return core.NewPersistenceError("update", id, err)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return core.NewPersistenceError("update", id, core.ErrNotFound)
	}
	s.entries[id] = p.Apply(e)
	s.publishLocked()
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return core.NewPersistenceError("delete", id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return core.NewPersistenceError("delete", id, core.ErrNotFound)
	}
	delete(s.entries, id)
	s.publishLocked()
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return core.Entry{}, core.NewPersistenceError("get", id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return core.Entry{}, core.NewPersistenceError("get", id, core.ErrNotFound)
	}
	return e, nil
}

func (s *Store) Snapshot(ctx context.Context, f store.Filter) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, core.NewPersistenceError("snapshot", "", err)
	}
	if err := f.Validate(); err != nil {
		return core.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return f.Apply(s.snapshotLocked()), nil
}

func (s *Store) Subscribe(ctx context.Context, f store.Filter) (<-chan core.Snapshot, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hub.Subscribe(ctx, f, s.snapshotLocked()), nil
}

// Close ends every active subscription.
func (s *Store) Close() error {
	s.hub.Close()
	return nil
}

func (s *Store) snapshotLocked() core.Snapshot {
	entries := make([]core.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	core.SortEntries(entries)
	return core.Snapshot{Version: s.version, Entries: entries, TakenAt: s.now().UTC()}
}

func (s *Store) publishLocked() {
	s.version++
	s.hub.Publish(s.snapshotLocked())
}
