package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string, int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %d, %v", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("c = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int, string](10, time.Minute)
	c.now = clock.now

	c.Set(1, "one")
	c.Set(2, "two")
	clock.t = clock.t.Add(30 * time.Second)
	c.Set(3, "three")

	clock.t = clock.t.Add(45 * time.Second)
	if _, ok := c.Get(1); ok {
		t.Fatal("item 1 should have expired")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("expected 1 expired item removed, got %d", removed)
	}
	if v, ok := c.Get(3); !ok || v != "three" {
		t.Fatalf("item 3 should be live, got %q %v", v, ok)
	}
}

func TestLRUCacheGetOrCompute(t *testing.T) {
	type key struct {
		version uint64
		month   string
	}
	c := NewLRUCache[key, int](4, time.Minute)
	calls := 0
	compute := func() int { calls++; return calls * 10 }

	v, cached := c.GetOrCompute(key{1, "2024-01"}, compute)
	if v != 10 || cached {
		t.Fatalf("first call: v=%d cached=%v", v, cached)
	}
	v, cached = c.GetOrCompute(key{1, "2024-01"}, compute)
	if v != 10 || !cached || calls != 1 {
		t.Fatalf("second call: v=%d cached=%v calls=%d", v, cached, calls)
	}
	v, cached = c.GetOrCompute(key{2, "2024-01"}, compute)
	if v != 20 || cached {
		t.Fatalf("new version must recompute: v=%d cached=%v", v, cached)
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 2 || s.Size != 2 {
		t.Fatalf("unexpected stats %+v", s)
	}

	c.Purge()
	if c.Size() != 0 {
		t.Fatal("purge left items behind")
	}
}

func TestManagerSweepsRegisteredCaches(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewLRUCache[string, int](10, time.Millisecond)
	c.now = clock.now
	c.Set("x", 1)
	clock.t = clock.t.Add(time.Second)

	m := NewManager()
	m.Register(c)
	if n := m.sweep(); n != 1 {
		t.Fatalf("expected 1 item swept, got %d", n)
	}

	m.StartCleanup(10 * time.Millisecond)
	m.Stop()
	m.Stop()
}
