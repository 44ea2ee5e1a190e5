package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/virtucloud/virtucloud-backend/pkg/logger"
)

const defaultSweepBatchSize = 500

// SubscriptionExpiryJobParams configure the daily expiry sweep.
type SubscriptionExpiryJobParams struct {
	Logger    *logger.Logger
	Expirer   subscriptionExpirer
	BatchSize int
}

type subscriptionExpirer interface {
	ExpireDue(ctx context.Context, now time.Time, limit int) (int64, error)
}

// NewSubscriptionExpiryJob builds the cron job that marks lapsed
// subscriptions as expired.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("subscription expirer required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &subscriptionExpiryJob{
		logg:      params.Logger,
		expirer:   params.Expirer,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type subscriptionExpiryJob struct {
	logg      *logger.Logger
	expirer   subscriptionExpirer
	batchSize int
	now       func() time.Time
}

func (j *subscriptionExpiryJob) Name() string { return "subscription-expiry" }

// Run expires lapsed subscriptions in batches until none remain. The
// conditional update makes repeated runs safe.
func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var total int64
	for {
		affected, err := j.expirer.ExpireDue(ctx, now, j.batchSize)
		if err != nil {
			return fmt.Errorf("expire due subscriptions: %w", err)
		}
		total += affected
		if affected < int64(j.batchSize) {
			break
		}
	}
	j.logg.Info(j.logg.WithField(ctx, "expired", total), "expiry sweep finished")
	return nil
}
