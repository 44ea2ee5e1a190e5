package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/virtucloud/virtucloud-backend/pkg/logger"
)

type fakeExpirer struct {
	batches []int64
	calls   int
	limits  []int
	err     error
}

func (f *fakeExpirer) ExpireDue(ctx context.Context, now time.Time, limit int) (int64, error) {
	f.calls++
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func TestSubscriptionExpiryJobDrainsInBatches(t *testing.T) {
	expirer := &fakeExpirer{batches: []int64{2, 2, 1}}
	job, err := NewSubscriptionExpiryJob(SubscriptionExpiryJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "cron-test"}),
		Expirer:   expirer,
		BatchSize: 2,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.calls != 3 {
		t.Fatalf("expected 3 batch calls, got %d", expirer.calls)
	}
	for _, limit := range expirer.limits {
		if limit != 2 {
			t.Fatalf("expected batch size 2, got %d", limit)
		}
	}
}

func TestSubscriptionExpiryJobSecondRunIsNoop(t *testing.T) {
	expirer := &fakeExpirer{batches: []int64{1}}
	job, err := NewSubscriptionExpiryJob(SubscriptionExpiryJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "cron-test"}),
		Expirer:   expirer,
		BatchSize: 500,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if expirer.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", expirer.calls)
	}
}

func TestSubscriptionExpiryJobPropagatesErrors(t *testing.T) {
	expirer := &fakeExpirer{err: errors.New("db down")}
	job, err := NewSubscriptionExpiryJob(SubscriptionExpiryJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		Expirer: expirer,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing sweep")
	}
}
