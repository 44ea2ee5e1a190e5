package plans

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/virtucloud/virtucloud-backend/pkg/db"
	"github.com/virtucloud/virtucloud-backend/pkg/db/models"
	"github.com/virtucloud/virtucloud-backend/pkg/enums"
	pkgerrors "github.com/virtucloud/virtucloud-backend/pkg/errors"
	"github.com/virtucloud/virtucloud-backend/pkg/logger"
)

// ServiceParams groups dependencies for the rate plan service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// Service orchestrates rate plan operations.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds a rate plan service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo, logg: params.Logger}, nil
}

// CreatePlanInput carries admin-supplied plan attributes.
type CreatePlanInput struct {
	Name         enums.PlanName  `json:"name" validate:"required"`
	PriceAmount  decimal.Decimal `json:"price_amount"`
	CurrencyCode string          `json:"currency_code,omitempty"`
	CPUCores     int             `json:"cpu_cores" validate:"required,min=1"`
	MaxVMs       int             `json:"max_vms" validate:"required,min=1"`
	MaxBackups   int             `json:"max_backups" validate:"min=0"`
	Description  string          `json:"description,omitempty"`
	Features     []string        `json:"features,omitempty"`
}

type defaultPlan struct {
	name        enums.PlanName
	price       string
	cpuCores    int
	maxVMs      int
	maxBackups  int
	description string
	features    []string
}

var defaultPlans = []defaultPlan{
	{name: enums.PlanNameBronze, price: "9.99", cpuCores: 1, maxVMs: 1, maxBackups: 3, description: "Entry tier for small workloads", features: []string{"Basic support", "Daily backups"}},
	{name: enums.PlanNameSilver, price: "19.99", cpuCores: 3, maxVMs: 3, maxBackups: 5, description: "Balanced tier for growing teams", features: []string{"Priority support", "Daily backups", "Snapshots"}},
	{name: enums.PlanNameGold, price: "49.99", cpuCores: 10, maxVMs: 10, maxBackups: 10, description: "Performance tier for production fleets", features: []string{"Priority support", "Hourly backups", "Snapshots", "Dedicated IP"}},
	{name: enums.PlanNamePlatinum, price: "99.99", cpuCores: 20, maxVMs: 20, maxBackups: 20, description: "Top tier with the highest limits", features: []string{"24/7 support", "Hourly backups", "Snapshots", "Dedicated IP", "SLA"}},
}

// EnsureDefaults seeds the fixed plan tiers when the catalog is empty.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting rate plans")
	}
	if count > 0 {
		return nil
	}

	for _, seed := range defaultPlans {
		price, err := decimal.NewFromString(seed.price)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parsing seed price")
		}
		plan := &models.RatePlan{
			ID:           uuid.New(),
			Name:         seed.name,
			PriceAmount:  price,
			CurrencyCode: "USD",
			CPUCores:     seed.cpuCores,
			MaxVMs:       seed.maxVMs,
			MaxBackups:   seed.maxBackups,
			Description:  seed.description,
			Features:     pq.StringArray(seed.features),
		}
		if err := s.repo.Create(ctx, plan); err != nil {
			if db.IsUniqueViolation(err, "") {
				continue
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seeding rate plan")
		}
	}

	if s.logg != nil {
		s.logg.Info(ctx, "seeded default rate plans")
	}
	return nil
}

// List returns every plan ordered by price, seeding the default tiers first
// when the catalog is empty.
func (s *Service) List(ctx context.Context) ([]models.RatePlan, error) {
	plans, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing rate plans")
	}
	if len(plans) == 0 {
		if err := s.EnsureDefaults(ctx); err != nil {
			return nil, err
		}
		plans, err = s.repo.List(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing rate plans")
		}
	}
	return plans, nil
}

// Get fetches a plan by its identifier.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.RatePlan, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding rate plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rate plan not found")
	}
	return plan, nil
}

// Create adds a plan for one of the fixed tiers.
func (s *Service) Create(ctx context.Context, input CreatePlanInput) (*models.RatePlan, error) {
	if !input.Name.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid plan name %q", input.Name))
	}
	if input.PriceAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan price cannot be negative")
	}
	if input.CPUCores <= 0 || input.MaxVMs <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cpu cores and max vms must be positive")
	}
	if input.MaxBackups < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max backups cannot be negative")
	}

	existing, err := s.repo.FindByName(ctx, input.Name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking plan name")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("plan %s already exists", input.Name))
	}

	currency := input.CurrencyCode
	if currency == "" {
		currency = "USD"
	}

	plan := &models.RatePlan{
		ID:           uuid.New(),
		Name:         input.Name,
		PriceAmount:  input.PriceAmount,
		CurrencyCode: currency,
		CPUCores:     input.CPUCores,
		MaxVMs:       input.MaxVMs,
		MaxBackups:   input.MaxBackups,
		Description:  input.Description,
		Features:     pq.StringArray(input.Features),
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("plan %s already exists", input.Name))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating rate plan")
	}
	return plan, nil
}

// UpdatePlanInput carries mutable plan attributes.
type UpdatePlanInput struct {
	PriceAmount *decimal.Decimal `json:"price_amount,omitempty"`
	CPUCores    *int             `json:"cpu_cores,omitempty"`
	MaxVMs      *int             `json:"max_vms,omitempty"`
	MaxBackups  *int             `json:"max_backups,omitempty"`
	Description *string          `json:"description,omitempty"`
	Features    []string         `json:"features,omitempty"`
}

// Update modifies an existing plan's price, limits, or feature list.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdatePlanInput) (*models.RatePlan, error) {
	plan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.PriceAmount != nil {
		if input.PriceAmount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan price cannot be negative")
		}
		plan.PriceAmount = *input.PriceAmount
	}
	if input.CPUCores != nil {
		if *input.CPUCores <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cpu cores must be positive")
		}
		plan.CPUCores = *input.CPUCores
	}
	if input.MaxVMs != nil {
		if *input.MaxVMs <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "max vms must be positive")
		}
		plan.MaxVMs = *input.MaxVMs
	}
	if input.MaxBackups != nil {
		if *input.MaxBackups < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "max backups cannot be negative")
		}
		plan.MaxBackups = *input.MaxBackups
	}
	if input.Description != nil {
		plan.Description = *input.Description
	}
	if input.Features != nil {
		plan.Features = pq.StringArray(input.Features)
	}

	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating rate plan")
	}
	return plan, nil
}

// Delete removes a plan from the catalog.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	plan, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, plan.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting rate plan")
	}
	return nil
}
