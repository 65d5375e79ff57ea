package ratelimit

import (
	"context"
	"sync"
	"time"
)

// keyWindow is one key's accepted timestamps plus the window length
// its limiter uses, recorded so the sweeper knows how far back an
// entry can matter.
type keyWindow struct {
	times  []time.Time
	window time.Duration
}

// MemoryStore keeps timestamp windows in process memory. It is an
// explicitly-owned object, not a package-level singleton, so tests
// get isolated instances and deployments can swap in RedisStore.
//
// Counters reset on process restart and are not shared across
// instances; that is the accepted trade-off of in-memory limiting.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*keyWindow

	sweepOnce sync.Once
	done      chan struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*keyWindow),
		done:    make(chan struct{}),
	}
}

// Take implements Store. The mutex covers the whole read-modify-write
// so the window count never exceeds the limit under parallel callers.
func (s *MemoryStore) Take(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kw := s.windows[key]
	if kw == nil {
		kw = &keyWindow{window: window}
		s.windows[key] = kw
	}
	kw.window = window
	kw.times = prune(kw.times, now.Add(-window))

	if len(kw.times) >= limit {
		return Decision{Allowed: false, Count: len(kw.times), Oldest: kw.times[0]}, nil
	}

	kw.times = append(kw.times, now)
	return Decision{Allowed: true, Count: len(kw.times), Oldest: kw.times[0]}, nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// StartSweeper launches a background goroutine that periodically
// prunes every key and drops the ones whose window emptied, bounding
// memory growth from abandoned keys. Call Stop to cancel it.
func (s *MemoryStore) StartSweeper(interval time.Duration) {
	s.sweepOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-s.done:
					return
				case now := <-ticker.C:
					s.sweep(now)
				}
			}
		}()
	})
}

// Stop cancels the background sweeper.
func (s *MemoryStore) Stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, kw := range s.windows {
		kw.times = prune(kw.times, now.Add(-kw.window))
		if len(kw.times) == 0 {
			delete(s.windows, key)
		}
	}
}

// prune drops timestamps at or before cutoff. Windows are
// append-ordered, so the first kept index bounds the copy.
func prune(window []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(window) && !window[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return window
	}
	return append([]time.Time(nil), window[i:]...)
}
