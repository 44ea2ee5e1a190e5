package subscriptions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/virtucloud/virtucloud-backend/pkg/db/models"
	"github.com/virtucloud/virtucloud-backend/pkg/enums"
)

// SubscriptionDTO is the transport shape for the user's subscription.
type SubscriptionDTO struct {
	ID              uuid.UUID                `json:"id"`
	PlanName        enums.PlanName           `json:"plan_name"`
	Price           decimal.Decimal          `json:"price"`
	CPUCores        int                      `json:"cpu_cores"`
	MaxVMs          int                      `json:"max_vms"`
	MaxBackups      int                      `json:"max_backups"`
	Status          enums.SubscriptionStatus `json:"status"`
	Active          bool                     `json:"active"`
	StartDate       time.Time                `json:"start_date"`
	NextBillingDate time.Time                `json:"next_billing_date"`
	CancelledAt     *time.Time               `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

// FromModel maps a subscription record onto its transport shape.
func FromModel(sub *models.Subscription) *SubscriptionDTO {
	if sub == nil {
		return nil
	}
	return &SubscriptionDTO{
		ID:              sub.ID,
		PlanName:        sub.PlanName,
		Price:           sub.Price,
		CPUCores:        sub.CPUCores,
		MaxVMs:          sub.MaxVMs,
		MaxBackups:      sub.MaxBackups,
		Status:          sub.Status,
		Active:          sub.Active,
		StartDate:       sub.StartDate,
		NextBillingDate: sub.NextBillingDate,
		CancelledAt:     sub.CancelledAt,
		CreatedAt:       sub.CreatedAt,
	}
}
