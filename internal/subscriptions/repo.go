package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/virtucloud/virtucloud-backend/pkg/db/models"
	"github.com/virtucloud/virtucloud-backend/pkg/enums"
)

// Repository provides persistence for per-user subscriptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, sub *models.Subscription) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	Cancel(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	ExpireDue(ctx context.Context, now time.Time, limit int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed subscription repository.
func NewRepository(db *gorm.DB) (Repository, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &repository{db: db}, nil
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Upsert writes the user's single subscription row, replacing the plan and
// period if one already exists.
func (r *repository) Upsert(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_name",
			"price",
			"cpu_cores",
			"max_vms",
			"max_backups",
			"status",
			"active",
			"start_date",
			"next_billing_date",
			"cancelled_at",
			"updated_at",
		}),
	}).Create(sub).Error
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).First(&sub, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Cancel flips an active subscription to cancelled. The returned count is
// zero when the user has no active subscription.
func (r *repository) Cancel(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND status = ?", userID, enums.SubscriptionStatusActive).
		Updates(map[string]any{
			"status":       enums.SubscriptionStatusCancelled,
			"active":       false,
			"cancelled_at": at,
			"updated_at":   at,
		})
	return res.RowsAffected, res.Error
}

// ExpireDue marks up to limit active subscriptions whose period has lapsed
// as expired. The conditional WHERE keeps repeated sweeps idempotent.
func (r *repository) ExpireDue(ctx context.Context, now time.Time, limit int) (int64, error) {
	due := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Select("id").
		Where("status = ? AND active AND next_billing_date < ?", enums.SubscriptionStatusActive, now).
		Limit(limit)

	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id IN (?)", due).
		Updates(map[string]any{
			"status":     enums.SubscriptionStatusExpired,
			"active":     false,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}
