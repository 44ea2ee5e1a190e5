package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/virtucloud/virtucloud-backend/pkg/enums"
)

// RatePlan is one of the fixed subscription tiers users can pay for.
type RatePlan struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         enums.PlanName  `gorm:"column:name;type:text;not null;uniqueIndex"`
	PriceAmount  decimal.Decimal `gorm:"column:price_amount;type:numeric(12,2);not null"`
	CurrencyCode string          `gorm:"column:currency_code;not null;default:'USD'"`
	CPUCores     int             `gorm:"column:cpu_cores;not null"`
	MaxVMs       int             `gorm:"column:max_vms;not null"`
	MaxBackups   int             `gorm:"column:max_backups;not null"`
	Description  string          `gorm:"column:description;not null;default:''"`
	Features     pq.StringArray  `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
