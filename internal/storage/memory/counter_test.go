package memory

import (
	"context"
	"testing"
	"time"
)

func TestRiskCounterReturnsPriorCount(t *testing.T) {
	ctx := context.Background()
	counter := NewMemoryRiskCounter()
	now := base
	counter.now = func() time.Time { return now }

	for want := int64(0); want < 3; want++ {
		got, err := counter.Hit(ctx, "user-1", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("expected prior count %d, got %d", want, got)
		}
	}

	if got, _ := counter.Hit(ctx, "user-2", time.Hour); got != 0 {
		t.Fatalf("keys must be independent, got %d", got)
	}
}

func TestRiskCounterWindowSlides(t *testing.T) {
	ctx := context.Background()
	counter := NewMemoryRiskCounter()
	now := base
	counter.now = func() time.Time { return now }

	counter.Hit(ctx, "user-1", time.Hour)
	now = now.Add(50 * time.Minute)
	if got, _ := counter.Hit(ctx, "user-1", time.Hour); got != 1 {
		t.Fatalf("expected 1 within window, got %d", got)
	}

	// each hit pushes expiry out, so 50 more minutes still counts
	now = now.Add(50 * time.Minute)
	if got, _ := counter.Hit(ctx, "user-1", time.Hour); got != 2 {
		t.Fatalf("expected 2 after refresh, got %d", got)
	}

	now = now.Add(time.Hour)
	if got, _ := counter.Hit(ctx, "user-1", time.Hour); got != 0 {
		t.Fatalf("expected reset after expiry, got %d", got)
	}
}

func TestRiskCounterSweepsExpired(t *testing.T) {
	ctx := context.Background()
	counter := NewMemoryRiskCounter()
	now := base
	counter.now = func() time.Time { return now }

	counter.Hit(ctx, "idle", time.Minute)
	now = now.Add(time.Hour)
	for i := 0; i < sweepEvery; i++ {
		counter.Hit(ctx, "busy", time.Hour)
	}

	counter.mu.Lock()
	_, present := counter.entries["idle"]
	counter.mu.Unlock()
	if present {
		t.Fatal("expected expired entry to be swept")
	}
}
