package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/virtucloud/virtucloud-backend/pkg/db/models"
	"github.com/virtucloud/virtucloud-backend/pkg/enums"
	pkgerrors "github.com/virtucloud/virtucloud-backend/pkg/errors"
	"github.com/virtucloud/virtucloud-backend/pkg/logger"
)

// ServiceParams bundles the dependencies required to build the service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// Service manages the single subscription each user may hold.
type Service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds a subscription service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo, logg: params.Logger, now: time.Now}, nil
}

// Current returns the user's subscription.
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription found")
	}
	return sub, nil
}

// ActiveFor returns the user's subscription only when it is active and its
// period covers the current time. Callers relying on plan limits use this
// instead of Current.
func (s *Service) ActiveFor(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find subscription")
	}
	if sub == nil || !sub.Active || sub.Status != enums.SubscriptionStatusActive || !sub.NextBillingDate.After(s.now().UTC()) {
		return nil, nil
	}
	return sub, nil
}

// Cancel stops the user's active subscription immediately.
func (s *Service) Cancel(ctx context.Context, userID uuid.UUID) error {
	affected, err := s.repo.Cancel(ctx, userID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel subscription")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription to cancel")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "subscription cancelled")
	}
	return nil
}

// Grant activates a subscription for the plan, snapshotting its terms. The
// upsert fully overwrites any existing row for the user and resets the billing
// cycle from now; switching plans mid-cycle is not prorated.
func (s *Service) Grant(ctx context.Context, userID uuid.UUID, plan *models.RatePlan, months int) (*models.Subscription, error) {
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan is required")
	}
	if months <= 0 {
		months = 1
	}

	existing, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find subscription")
	}

	now := s.now().UTC()
	sub := &models.Subscription{
		UserID:          userID,
		PlanName:        plan.Name,
		Price:           plan.PriceAmount,
		CPUCores:        plan.CPUCores,
		MaxVMs:          plan.MaxVMs,
		MaxBackups:      plan.MaxBackups,
		Status:          enums.SubscriptionStatusActive,
		Active:          true,
		StartDate:       now,
		NextBillingDate: AddCalendarMonths(now, months),
		CancelledAt:     nil,
	}
	if existing != nil {
		sub.ID = existing.ID
	} else {
		sub.ID = uuid.New()
	}
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert subscription")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "subscription activated")
	}
	return sub, nil
}
