package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLimiterCheck(t *testing.T) {
	store := NewMemoryStore()
	limiter := New(Config{
		Interval:    15 * time.Minute,
		MaxRequests: 5,
		Prefix:      "login",
	}, store, testLogger())
	ctx := context.Background()

	wantRemaining := []int{4, 3, 2, 1, 0}
	for i, want := range wantRemaining {
		res := limiter.Check(ctx, "alice@clinic.test")
		if !res.OK {
			t.Fatalf("Check %d: want OK", i+1)
		}
		if res.Remaining != want {
			t.Errorf("Check %d: Remaining = %d, want %d", i+1, res.Remaining, want)
		}
		if res.ResetIn != 0 {
			t.Errorf("Check %d: ResetIn = %d, want 0 while allowed", i+1, res.ResetIn)
		}
	}

	res := limiter.Check(ctx, "alice@clinic.test")
	if res.OK {
		t.Fatal("sixth check within the window must be rejected")
	}
	if res.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", res.Remaining)
	}
	// The oldest entry just landed, so the wait is essentially the
	// whole window, rounded up to whole seconds.
	if res.ResetIn < 899 || res.ResetIn > 900 {
		t.Errorf("ResetIn = %d, want ~900", res.ResetIn)
	}
}

func TestLimiterKeysIndependent(t *testing.T) {
	store := NewMemoryStore()
	limiter := New(Config{Interval: time.Minute, MaxRequests: 1, Prefix: "login"}, store, testLogger())
	ctx := context.Background()

	if res := limiter.Check(ctx, "alice"); !res.OK {
		t.Fatal("first key: want OK")
	}
	if res := limiter.Check(ctx, "bob"); !res.OK {
		t.Fatal("second key must have its own window")
	}
	if res := limiter.Check(ctx, "alice"); res.OK {
		t.Fatal("first key must stay throttled")
	}
}

func TestLimiterPrefixesShareStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	login := New(Config{Interval: time.Minute, MaxRequests: 1, Prefix: "login"}, store, testLogger())
	otpSend := New(Config{Interval: time.Minute, MaxRequests: 1, Prefix: "otp-send"}, store, testLogger())

	if res := login.Check(ctx, "+15550001111"); !res.OK {
		t.Fatal("login: want OK")
	}
	// Same identity under a different prefix is tracked separately.
	if res := otpSend.Check(ctx, "+15550001111"); !res.OK {
		t.Fatal("otp-send must not see login's window")
	}
	if res := login.Check(ctx, "+15550001111"); res.OK {
		t.Fatal("login must stay throttled")
	}
}

func TestLimiterReset(t *testing.T) {
	store := NewMemoryStore()
	limiter := New(Config{Interval: time.Minute, MaxRequests: 1, Prefix: "login"}, store, testLogger())
	ctx := context.Background()

	limiter.Check(ctx, "alice")
	if res := limiter.Check(ctx, "alice"); res.OK {
		t.Fatal("want throttled before reset")
	}

	limiter.Reset(ctx, "alice")

	if res := limiter.Check(ctx, "alice"); !res.OK {
		t.Fatal("want OK after reset")
	}
}

type failingStore struct{}

func (failingStore) Take(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Decision, error) {
	return Decision{}, errors.New("store down")
}

func (failingStore) Reset(ctx context.Context, key string) error {
	return errors.New("store down")
}

func TestLimiterFailsOpenOnStoreError(t *testing.T) {
	limiter := New(Config{Interval: time.Minute, MaxRequests: 5, Prefix: "login"}, failingStore{}, testLogger())

	res := limiter.Check(context.Background(), "alice")
	if !res.OK {
		t.Fatal("store failure must not lock users out")
	}
}

func TestResetInRoundsUp(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		oldest time.Time
		window time.Duration
		want   int
	}{
		{"whole seconds", now.Add(-30 * time.Second), time.Minute, 30},
		{"fraction rounds up", now.Add(-29500 * time.Millisecond), time.Minute, 31},
		{"already expired", now.Add(-2 * time.Minute), time.Minute, 0},
		{"full window", now, 15 * time.Minute, 900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resetIn(tt.oldest, tt.window, now); got != tt.want {
				t.Errorf("resetIn = %d, want %d", got, tt.want)
			}
		})
	}
}
