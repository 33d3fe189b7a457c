package jobx_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/jobx"
	"github.com/Abraxas-365/authbuilder/pkg/jobx/jobxredis"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) JobProcessed(jobType, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, jobType+":"+outcome)
}

func newClient(t *testing.T, opts ...jobx.WorkerOption) *jobx.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	opts = append([]jobx.WorkerOption{jobx.WithQueues("notifications"), jobx.WithDequeueTimeout(time.Second)}, opts...)
	return jobx.NewClient(jobxredis.NewRedisQueue(rdb), opts...)
}

type welcome struct {
	Email string `json:"email"`
}

func TestProcessNextRunsHandler(t *testing.T) {
	ctx := context.Background()
	rec := &outcomeRecorder{}
	c := newClient(t, jobx.WithObserver(rec))

	var got welcome
	c.Register("welcome", func(_ context.Context, job *jobx.JobInfo) error {
		return job.Decode(&got)
	})

	id, err := c.EnqueuePayload(ctx, "welcome", welcome{Email: "a@example.com"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	handled, err := c.ProcessNext(ctx)
	if err != nil || !handled {
		t.Fatalf("handled=%v err=%v", handled, err)
	}
	if got.Email != "a@example.com" {
		t.Fatalf("payload not decoded: %+v", got)
	}

	info, _ := c.GetJob(ctx, id)
	if info.Status != jobx.JobStatusCompleted {
		t.Fatalf("status = %s", info.Status)
	}
	if len(rec.outcomes) != 1 || rec.outcomes[0] != "welcome:completed" {
		t.Fatalf("outcomes = %v", rec.outcomes)
	}
}

func TestProcessNextRetriesFailingHandler(t *testing.T) {
	ctx := context.Background()
	rec := &outcomeRecorder{}
	c := newClient(t, jobx.WithObserver(rec), jobx.WithMaxRetries(2))

	c.Register("flaky", func(context.Context, *jobx.JobInfo) error {
		return errors.New("boom")
	})

	id, _ := c.EnqueuePayload(ctx, "flaky", map[string]string{})
	if _, err := c.ProcessNext(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	info, _ := c.GetJob(ctx, id)
	if info.Status != jobx.JobStatusRetrying || info.Error != "boom" {
		t.Fatalf("unexpected state %+v", info)
	}
	if rec.outcomes[0] != "flaky:retrying" {
		t.Fatalf("outcomes = %v", rec.outcomes)
	}
}

func TestEnqueueRejectsEmptyType(t *testing.T) {
	c := newClient(t)
	if _, err := c.Enqueue(context.Background(), jobx.Job{}); !errx.HasCode(err, jobx.ErrInvalidJob) {
		t.Fatalf("expected invalid job, got %v", err)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	c := newClient(t, jobx.WithShutdownTimeout(2*time.Second), jobx.WithPollInterval(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
