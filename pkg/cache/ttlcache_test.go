package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestTTLCache_GetSet(t *testing.T) {
	c := New[string, string](Config{MaxEntries: 10, DefaultTTL: time.Minute})

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for absent key")
	}

	c.Set("a", "1")
	v, ok := c.Get("a")
	if !ok || v != "1" {
		t.Fatalf("expected hit with value 1, got %q ok=%v", v, ok)
	}

	c.Set("a", "2")
	v, _ = c.Get("a")
	if v != "2" {
		t.Fatalf("overwrite did not take effect, got %q", v)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after overwrite, got %d", c.Len())
	}
}

func TestTTLCache_CapacityEvictsLRU(t *testing.T) {
	const max = 5
	c := New[string, int](Config{MaxEntries: max, DefaultTTL: time.Minute})

	for i := 0; i < max; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}

	// Touch key-0 so key-1 becomes the least recently used.
	if _, ok := c.Get("key-0"); !ok {
		t.Fatal("key-0 should be present")
	}

	c.Set("key-new", 99)

	if c.Len() != max {
		t.Fatalf("cache exceeded capacity: %d entries", c.Len())
	}
	if _, ok := c.Get("key-1"); ok {
		t.Error("key-1 should have been evicted as LRU")
	}
	if _, ok := c.Get("key-0"); !ok {
		t.Error("key-0 was recently used and should survive")
	}
	if _, ok := c.Get("key-new"); !ok {
		t.Error("key-new should be present")
	}
}

func TestTTLCache_CapacityInvariantUnderOverflow(t *testing.T) {
	const max = 8
	c := New[int, int](Config{MaxEntries: max, DefaultTTL: time.Minute})

	// Insert maxEntries + k distinct keys; exactly maxEntries most recent remain.
	for i := 0; i < max+13; i++ {
		c.Set(i, i)
	}
	if c.Len() != max {
		t.Fatalf("expected %d entries, got %d", max, c.Len())
	}
	for i := max + 13 - max; i < max+13; i++ {
		if _, ok := c.Get(i); !ok {
			t.Errorf("expected key %d among the most recently used", i)
		}
	}
}

func TestTTLCache_Expiry(t *testing.T) {
	now := time.Now()
	c := New[string, string](Config{MaxEntries: 10, DefaultTTL: time.Minute})
	c.SetClock(func() time.Time { return now })

	c.SetWithTTL("k", "v", 30*time.Second)

	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry should be retrievable immediately after insertion")
	}

	now = now.Add(31 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should be absent after TTL elapsed")
	}
	if c.Len() != 0 {
		t.Fatal("expired entry should be removed on read")
	}

	stats := c.GetStats()
	if stats.Expired != 1 {
		t.Errorf("expected 1 expired entry in stats, got %d", stats.Expired)
	}
}

func TestTTLCache_Clear(t *testing.T) {
	c := New[string, int](Config{MaxEntries: 10, DefaultTTL: time.Minute})
	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear()

	if c.Len() != 0 {
		t.Fatalf("expected empty cache after Clear, got %d entries", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("entry survived Clear")
	}
}

func TestTTLCache_Stats(t *testing.T) {
	c := New[string, int](Config{MaxEntries: 2, DefaultTTL: time.Minute})

	c.Set("a", 1)
	c.Get("a")
	c.Get("nope")
	c.Set("b", 2)
	c.Set("c", 3) // evicts "a"

	stats := c.GetStats()
	if stats.Hits != 1 {
		t.Errorf("hits = %d, want 1", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("misses = %d, want 1", stats.Misses)
	}
	if stats.Evictions != 1 {
		t.Errorf("evictions = %d, want 1", stats.Evictions)
	}
}
