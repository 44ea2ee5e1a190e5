package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/virtucloud/virtucloud-backend/pkg/enums"
)

// Subscription tracks the single plan grant each user holds. Plan terms are
// snapshotted at subscribe time so later catalog edits do not change what an
// existing subscriber already paid for.
type Subscription struct {
	ID         uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID                `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	PlanName   enums.PlanName           `gorm:"column:plan_name;type:text;not null"`
	Price      decimal.Decimal          `gorm:"column:price;type:numeric(12,2);not null"`
	CPUCores   int                      `gorm:"column:cpu_cores;not null"`
	MaxVMs     int                      `gorm:"column:max_vms;not null"`
	MaxBackups int                      `gorm:"column:max_backups;not null"`
	Status     enums.SubscriptionStatus `gorm:"column:status;type:text;not null;default:'active'"`
	// Active mirrors Status for cheap filtering in the sweep and quota paths.
	Active          bool       `gorm:"column:active;not null;default:true"`
	StartDate       time.Time  `gorm:"column:start_date;not null"`
	NextBillingDate time.Time  `gorm:"column:next_billing_date;not null;index"`
	CancelledAt     *time.Time `gorm:"column:cancelled_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
