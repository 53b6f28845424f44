package store

import (
	"context"
	"sync"

	"contas/internal/core"
)

// Broadcaster fans snapshots out to subscribers. Each subscriber holds at most
// one pending snapshot; a newer snapshot replaces an undelivered older one.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool
}

type subscriber struct {
	filter Filter
	ch     chan core.Snapshot
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[uint64]*subscriber)}
}

// Subscribe registers a subscriber and queues initial as its first snapshot.
// Callers must hold whatever lock orders their Publish calls so that no
// snapshot is missed between reading initial and registering.
func (b *Broadcaster) Subscribe(ctx context.Context, f Filter, initial core.Snapshot) <-chan core.Snapshot {
	ch := make(chan core.Snapshot, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = &subscriber{filter: f, ch: ch}
	ch <- f.Apply(initial)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(id)
	}()
	return ch
}

// Publish delivers s to every subscriber without blocking.
func (b *Broadcaster) Publish(s core.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		snap := sub.filter.Apply(s)
		select {
		case sub.ch <- snap:
		default:
			// drop the stale pending snapshot
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- snap
		}
	}
}

// Len returns the number of active subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel and rejects new subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}

func (b *Broadcaster) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}
