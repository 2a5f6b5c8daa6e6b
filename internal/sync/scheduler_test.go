package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingRunner struct {
	calls atomic.Int64
	err   error
}

func (r *countingRunner) RunOnce(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func TestScheduler_NoopWithoutRunnerOrInterval(t *testing.T) {
	done := make(chan struct{})
	go func() {
		(&Scheduler{}).Run(context.Background())
		(&Scheduler{Runner: &countingRunner{}}).Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("misconfigured scheduler did not return immediately")
	}
}

func TestScheduler_KeepsRunningAfterFailedPass(t *testing.T) {
	runner := &countingRunner{err: errors.New("boom")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		(&Scheduler{Runner: runner, Interval: 5 * time.Millisecond}).Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for runner.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("scheduler stalled after %d passes", runner.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}
