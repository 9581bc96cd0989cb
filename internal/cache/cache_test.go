package cache

import (
	"testing"

	"github.com/funclens/funclens/internal/model"
)

func fns(names ...string) []model.Func {
	out := make([]model.Func, len(names))
	for i, n := range names {
		out[i] = model.Func{Name: n, Kind: model.Function, StartLine: i + 1}
	}
	return out
}

func TestGetTagMatch(t *testing.T) {
	t.Parallel()
	c, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	c.Put(1, 7, fns("alpha", "beta"))

	got, ok := c.Get(1, 7)
	if !ok {
		t.Fatal("expected hit for matching tag")
	}
	if len(got) != 2 || got[0].Name != "alpha" {
		t.Errorf("got %v", got)
	}
}

func TestGetTagMismatchIsMiss(t *testing.T) {
	t.Parallel()
	c, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	c.Put(1, 7, fns("alpha"))

	if _, ok := c.Get(1, 8); ok {
		t.Error("tag mismatch should miss")
	}
	// The entry is retained: the stale pass still serves it.
	if got, ok := c.GetStale(1); !ok || len(got) != 1 {
		t.Errorf("GetStale = %v, %v", got, ok)
	}
}

func TestGetUnknownBuffer(t *testing.T) {
	t.Parallel()
	c, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get(99, 1); ok {
		t.Error("expected miss for unknown buffer")
	}
	if _, ok := c.GetStale(99); ok {
		t.Error("expected stale miss for unknown buffer")
	}
}

func TestEvictionIsAccessOrdered(t *testing.T) {
	t.Parallel()
	c, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	c.Put(1, 1, fns("a"))
	c.Put(2, 1, fns("b"))

	// Touch 1 so 2 becomes least recently used.
	if _, ok := c.Get(1, 1); !ok {
		t.Fatal("expected hit")
	}

	c.Put(3, 1, fns("c"))

	if _, ok := c.GetStale(2); ok {
		t.Error("buffer 2 should have been evicted")
	}
	if _, ok := c.GetStale(1); !ok {
		t.Error("buffer 1 should survive eviction")
	}
	if _, ok := c.GetStale(3); !ok {
		t.Error("buffer 3 should be present")
	}
}

func TestPutReplacesEntry(t *testing.T) {
	t.Parallel()
	c, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	c.Put(1, 1, fns("old"))
	c.Put(1, 2, fns("new", "newer"))

	if _, ok := c.Get(1, 1); ok {
		t.Error("old tag should no longer hit")
	}
	got, ok := c.Get(1, 2)
	if !ok || len(got) != 2 || got[0].Name != "new" {
		t.Errorf("Get = %v, %v", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestInvalidate(t *testing.T) {
	t.Parallel()
	c, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	c.Put(1, 1, fns("a"))
	c.Invalidate(1)

	if _, ok := c.GetStale(1); ok {
		t.Error("invalidated entry should be gone")
	}
	// Invalidating an absent id is a no-op.
	c.Invalidate(42)
}

func TestResizeEvicts(t *testing.T) {
	t.Parallel()
	c, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	for id := model.BufferID(1); id <= 4; id++ {
		c.Put(id, 1, fns("f"))
	}
	c.Resize(2)

	if c.Len() != 2 {
		t.Errorf("Len after resize = %d, want 2", c.Len())
	}
	// The most recently inserted entries survive.
	if _, ok := c.GetStale(4); !ok {
		t.Error("buffer 4 should survive resize")
	}
	if _, ok := c.GetStale(1); ok {
		t.Error("buffer 1 should have been evicted")
	}
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	t.Parallel()
	if _, err := New(0); err == nil {
		t.Error("expected error for size 0")
	}
}
