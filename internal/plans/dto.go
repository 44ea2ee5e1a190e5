package plans

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/virtucloud/virtucloud-backend/pkg/db/models"
	"github.com/virtucloud/virtucloud-backend/pkg/enums"
)

// PlanDTO is the transport shape for a rate plan.
type PlanDTO struct {
	ID           uuid.UUID       `json:"id"`
	Name         enums.PlanName  `json:"name"`
	PriceAmount  decimal.Decimal `json:"price_amount"`
	CurrencyCode string          `json:"currency_code"`
	CPUCores     int             `json:"cpu_cores"`
	MaxVMs       int             `json:"max_vms"`
	MaxBackups   int             `json:"max_backups"`
	Description  string          `json:"description,omitempty"`
	Features     []string        `json:"features"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// FromModel maps a plan record onto its transport shape.
func FromModel(plan *models.RatePlan) *PlanDTO {
	if plan == nil {
		return nil
	}
	return &PlanDTO{
		ID:           plan.ID,
		Name:         plan.Name,
		PriceAmount:  plan.PriceAmount,
		CurrencyCode: plan.CurrencyCode,
		CPUCores:     plan.CPUCores,
		MaxVMs:       plan.MaxVMs,
		MaxBackups:   plan.MaxBackups,
		Description:  plan.Description,
		Features:     []string(plan.Features),
		CreatedAt:    plan.CreatedAt,
		UpdatedAt:    plan.UpdatedAt,
	}
}

// FromModels maps a list of plan records.
func FromModels(records []models.RatePlan) []PlanDTO {
	dtos := make([]PlanDTO, 0, len(records))
	for i := range records {
		dtos = append(dtos, *FromModel(&records[i]))
	}
	return dtos
}
