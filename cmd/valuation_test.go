package cmd

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingRunner struct {
	mu     sync.Mutex
	calls  int
	limits []int
	cancel context.CancelFunc
	stopAt int
}

func (r *countingRunner) RunDueValuations(_ context.Context, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.limits = append(r.limits, limit)
	if r.calls >= r.stopAt {
		r.cancel()
	}
	if r.calls == 1 {
		return 0, errors.New("database is locked")
	}
	return 1, nil
}

func TestRunValuationLoopKeepsGoingAfterFailedTick(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &countingRunner{cancel: cancel, stopAt: 3}

	done := make(chan struct{})
	go func() {
		runValuationLoop(ctx, runner, time.Millisecond, 7)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("runValuationLoop() did not stop after cancel")
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.calls != 3 {
		t.Fatalf("calls = %d, want 3", runner.calls)
	}
	for _, limit := range runner.limits {
		if limit != 7 {
			t.Fatalf("limits = %v", runner.limits)
		}
	}
}
