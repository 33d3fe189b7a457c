package tokeninfra_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/iam/token/tokeninfra"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) SweepExpired(context.Context) (int64, error) {
	s.calls.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return 2, nil
}

func TestRunOnceSwallowsErrors(t *testing.T) {
	svc := tokeninfra.NewCleanupService(&countingSweeper{err: errors.New("db down")}, time.Minute)
	if n := svc.RunOnce(context.Background()); n != 0 {
		t.Fatalf("RunOnce = %d, want 0", n)
	}
}

func TestStartSweepsUntilCancelled(t *testing.T) {
	sweeper := &countingSweeper{}
	svc := tokeninfra.NewCleanupService(sweeper, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for sweeper.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper not called")
		case <-time.After(2 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
