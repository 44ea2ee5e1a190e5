package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/virtucloud/virtucloud-backend/pkg/enums"
)

// Payment records one attempt to pay for a rate plan. PlanName is a snapshot,
// not a foreign key, so history survives catalog edits.
type Payment struct {
	ID           uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	PlanName     enums.PlanName      `gorm:"column:plan_name;type:text;not null"`
	Amount       decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Description  string              `gorm:"column:description;not null;default:''"`
	CurrencyCode string              `gorm:"column:currency_code;not null;default:'USD'"`
	Method       enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Status       enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	// ProviderRef holds the gateway reference: the Daraja CheckoutRequestID
	// for STK pushes or the card gateway payment ID.
	ProviderRef *string   `gorm:"column:provider_ref;index"`
	PhoneNumber *string   `gorm:"column:phone_number"`
	FailReason  *string   `gorm:"column:fail_reason"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
