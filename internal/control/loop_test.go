package control

import (
	"context"
	"testing"
	"time"
)

func TestRunEveryStopsWhenFnReturnsFalse(t *testing.T) {
	calls := 0
	runEvery(context.Background(), func() time.Duration { return 0 }, func(context.Context) bool {
		calls++
		return calls < 3
	})

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRunEverySkipsFnWhenAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	runEvery(ctx, func() time.Duration { return 0 }, func(context.Context) bool {
		calls++
		return true
	})

	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestRunEveryStopsOnCancelDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		runEvery(ctx, func() time.Duration { return time.Hour }, func(context.Context) bool {
			calls++
			cancel()
			return true
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runEvery did not stop after cancel")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
