package jobxredis_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/errx"
	"github.com/Abraxas-365/authbuilder/pkg/jobx"
	"github.com/Abraxas-365/authbuilder/pkg/jobx/jobxredis"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newQueue(t *testing.T, now func() time.Time) (*jobxredis.RedisQueue, *miniredis.Miniredis) {
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
	return jobxredis.NewRedisQueue(rdb, jobxredis.WithPrefix("test"), jobxredis.WithRetention(time.Hour), jobxredis.WithClock(now)), mr
}

func TestEnqueueDequeueComplete(t *testing.T) {
	ctx := context.Background()
	q, mr := newQueue(t, time.Now)

	id, err := q.Enqueue(ctx, jobx.Job{Type: "notification.welcome_email", Queue: "notifications", Payload: []byte(`{"password":"s3cret"}`), MaxRetries: 3})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	job, err := q.Dequeue(ctx, []string{"notifications"}, time.Second)
	if err != nil || job == nil {
		t.Fatalf("dequeue: job=%v err=%v", job, err)
	}
	if job.ID != id || job.Attempts != 1 || job.Status != jobx.JobStatusActive {
		t.Fatalf("unexpected job %+v", job)
	}

	if err := q.Complete(ctx, id); err != nil {
		t.Fatalf("complete: %v", err)
	}
	stored, err := q.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != jobx.JobStatusCompleted || len(stored.Payload) != 0 {
		t.Fatalf("completed job should drop payload, got %+v", stored)
	}
	if ttl := mr.TTL("test:job:" + id); ttl != time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}
}

func TestFailRetryAndPromote(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q, _ := newQueue(t, func() time.Time { return now })

	id, _ := q.Enqueue(ctx, jobx.Job{Type: "t", Queue: "default", Payload: []byte(`{}`), MaxRetries: 2})
	if _, err := q.Dequeue(ctx, []string{"default"}, time.Second); err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	retry, err := q.Fail(ctx, id, "smtp down")
	if err != nil || !retry {
		t.Fatalf("expected retry, got retry=%v err=%v", retry, err)
	}
	if err := q.Retry(ctx, id, time.Minute); err != nil {
		t.Fatalf("retry: %v", err)
	}

	if err := q.PromoteScheduled(ctx, []string{"default"}); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if job, _ := q.Dequeue(ctx, []string{"default"}, time.Second); job != nil {
		t.Fatal("job promoted before its delay elapsed")
	}

	now = now.Add(2 * time.Minute)
	if err := q.PromoteScheduled(ctx, []string{"default"}); err != nil {
		t.Fatalf("promote: %v", err)
	}
	job, err := q.Dequeue(ctx, []string{"default"}, time.Second)
	if err != nil || job == nil || job.Attempts != 2 {
		t.Fatalf("expected second attempt, got %+v err=%v", job, err)
	}

	retry, err = q.Fail(ctx, id, "smtp still down")
	if err != nil || retry {
		t.Fatalf("expected final failure, got retry=%v err=%v", retry, err)
	}
	stored, _ := q.GetJob(ctx, id)
	if stored.Status != jobx.JobStatusFailed || stored.Error != "smtp still down" || len(stored.Payload) != 0 {
		t.Fatalf("unexpected final state %+v", stored)
	}
}

func TestGetJobNotFound(t *testing.T) {
	q, _ := newQueue(t, time.Now)
	if _, err := q.GetJob(context.Background(), "missing"); !errx.HasCode(err, jobxredis.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
