package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreTake(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	window := time.Minute

	// Fill the window.
	for i := 0; i < 3; i++ {
		d, err := store.Take(ctx, "k", base.Add(time.Duration(i)*time.Second), window, 3)
		if err != nil {
			t.Fatalf("Take %d: unexpected error %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("Take %d: want allowed", i)
		}
		if d.Count != i+1 {
			t.Errorf("Take %d: Count = %d, want %d", i, d.Count, i+1)
		}
	}

	// Fourth attempt inside the window is rejected and reports the
	// oldest entry.
	d, err := store.Take(ctx, "k", base.Add(3*time.Second), window, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Fatal("want rejection once window is full")
	}
	if !d.Oldest.Equal(base) {
		t.Errorf("Oldest = %v, want %v", d.Oldest, base)
	}

	// A rejected attempt must not consume a slot: the same attempt
	// after the oldest entry expires succeeds.
	d, err = store.Take(ctx, "k", base.Add(window+time.Second), window, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Fatal("want allowed after oldest entry slid out of the window")
	}
}

func TestMemoryStoreWindowSlides(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	window := 10 * time.Second

	if _, err := store.Take(ctx, "k", base, window, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, _ := store.Take(ctx, "k", base.Add(5*time.Second), window, 1)
	if d.Allowed {
		t.Fatal("want rejection inside window")
	}

	d, _ = store.Take(ctx, "k", base.Add(11*time.Second), window, 1)
	if !d.Allowed {
		t.Fatal("want allowed after window passed")
	}
}

func TestMemoryStoreReset(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 2; i++ {
		store.Take(ctx, "k", now, time.Minute, 2)
	}
	d, _ := store.Take(ctx, "k", now, time.Minute, 2)
	if d.Allowed {
		t.Fatal("want rejection before reset")
	}

	if err := store.Reset(ctx, "k"); err != nil {
		t.Fatalf("Reset: unexpected error %v", err)
	}

	d, _ = store.Take(ctx, "k", now, time.Minute, 2)
	if !d.Allowed {
		t.Fatal("want allowed after reset")
	}
}

func TestMemoryStoreKeysIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	store.Take(ctx, "a", now, time.Minute, 1)
	d, _ := store.Take(ctx, "b", now, time.Minute, 1)
	if !d.Allowed {
		t.Fatal("keys must not share windows")
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	// Two keys with different window lengths.
	store.Take(ctx, "short", base, time.Minute, 5)
	store.Take(ctx, "long", base, time.Hour, 5)

	store.sweep(base.Add(2 * time.Minute))

	store.mu.Lock()
	_, shortAlive := store.windows["short"]
	_, longAlive := store.windows["long"]
	store.mu.Unlock()

	if shortAlive {
		t.Error("short-window key should be swept once its entries expire")
	}
	if !longAlive {
		t.Error("long-window key must survive a sweep inside its window")
	}
}
