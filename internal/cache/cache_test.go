package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)}
}

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")

	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) reported a hit")
	}
	c.Set("a", "2")
	if v, _ := c.Get("a"); v != "2" {
		t.Errorf("overwrite: got %q", v)
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := NewLRUCache[int](2, time.Minute, WithEvictHandler(func(key string, _ int) {
		evicted = append(evicted, key)
	}))

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a was recently used and should remain")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Errorf("evicted = %v", evicted)
	}
}

func TestLRUCache_TTLIsSliding(t *testing.T) {
	clock := newClock()
	c := NewLRUCache[int](10, time.Minute, WithClock[int](clock.Now))
	c.Set("a", 1)

	clock.Advance(50 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired early")
	}
	clock.Advance(50 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("read should have renewed the TTL")
	}
	clock.Advance(61 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("entry should have expired")
	}
	if c.Size() != 0 {
		t.Errorf("expired entry still stored, Size = %d", c.Size())
	}
}

func TestLRUCache_CleanExpired(t *testing.T) {
	clock := newClock()
	var evicted []string
	c := NewLRUCache[int](10, time.Minute,
		WithClock[int](clock.Now),
		WithEvictHandler(func(key string, _ int) { evicted = append(evicted, key) }))

	c.Set("old", 1)
	clock.Advance(45 * time.Second)
	c.Set("new", 2)
	clock.Advance(30 * time.Second)

	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("fresh entry removed")
	}
	if len(evicted) != 1 || evicted[0] != "old" {
		t.Errorf("evicted = %v", evicted)
	}
}

func TestLRUCache_DeleteAndPurge(t *testing.T) {
	var evicted int
	c := NewLRUCache[int](10, time.Minute, WithEvictHandler(func(string, int) { evicted++ }))
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Delete("a")
	c.Delete("missing")
	if evicted != 1 || c.Size() != 2 {
		t.Fatalf("after Delete: evicted=%d size=%d", evicted, c.Size())
	}

	c.Purge()
	if evicted != 3 || c.Size() != 0 {
		t.Errorf("after Purge: evicted=%d size=%d", evicted, c.Size())
	}
}

func TestLRUCache_ConcurrentAccess(t *testing.T) {
	c := NewLRUCache[int](50, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := string(rune('a' + (n+j)%26))
				c.Set(key, j)
				c.Get(key)
				if j%10 == 0 {
					c.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()
	if c.Size() > 50 {
		t.Errorf("Size = %d exceeds max", c.Size())
	}
}

func TestManager_CleanNowAndStop(t *testing.T) {
	clock := newClock()
	c := NewLRUCache[int](10, time.Minute, WithClock[int](clock.Now))
	c.Set("a", 1)
	clock.Advance(2 * time.Minute)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Errorf("CleanNow = %d, want 1", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	m.Stop()
}
