package matching

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs, failures int32
	s := NewScheduler()
	s.Every("count", 5*time.Millisecond, func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})
	s.Every("fail", 5*time.Millisecond, func(context.Context) error {
		atomic.AddInt32(&failures, 1)
		return errors.New("boom")
	})
	s.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&runs) < 2 || atomic.LoadInt32(&failures) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("tasks did not run: runs=%d failures=%d", atomic.LoadInt32(&runs), atomic.LoadInt32(&failures))
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	time.Sleep(20 * time.Millisecond)
	settled := atomic.LoadInt32(&runs)
	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got > settled {
		t.Errorf("task kept running after cancel: %d > %d", got, settled)
	}
}
