package plans

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/virtucloud/virtucloud-backend/pkg/db/models"
	"github.com/virtucloud/virtucloud-backend/pkg/enums"
	pkgerrors "github.com/virtucloud/virtucloud-backend/pkg/errors"
)

type stubRepo struct {
	plans    []models.RatePlan
	countFn  func(ctx context.Context) (int64, error)
	createFn func(ctx context.Context, plan *models.RatePlan) error
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }
func (s *stubRepo) Create(ctx context.Context, plan *models.RatePlan) error {
	if s.createFn != nil {
		return s.createFn(ctx, plan)
	}
	plan.ID = uuid.New()
	s.plans = append(s.plans, *plan)
	return nil
}
func (s *stubRepo) Update(ctx context.Context, plan *models.RatePlan) error { return nil }
func (s *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i, p := range s.plans {
		if p.ID == id {
			s.plans = append(s.plans[:i], s.plans[i+1:]...)
			return nil
		}
	}
	return nil
}
func (s *stubRepo) List(ctx context.Context) ([]models.RatePlan, error) {
	return s.plans, nil
}
func (s *stubRepo) Count(ctx context.Context) (int64, error) {
	if s.countFn != nil {
		return s.countFn(ctx)
	}
	return int64(len(s.plans)), nil
}
func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.RatePlan, error) {
	for i := range s.plans {
		if s.plans[i].ID == id {
			return &s.plans[i], nil
		}
	}
	return nil, nil
}
func (s *stubRepo) FindByName(ctx context.Context, name enums.PlanName) (*models.RatePlan, error) {
	for i := range s.plans {
		if s.plans[i].Name == name {
			return &s.plans[i], nil
		}
	}
	return nil, nil
}

func TestEnsureDefaultsSeedsAllTiersWhenEmpty(t *testing.T) {
	repo := &stubRepo{}
	svc, _ := NewService(ServiceParams{Repo: repo})

	if err := svc.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}

	if len(repo.plans) != 4 {
		t.Fatalf("expected 4 seeded plans, got %d", len(repo.plans))
	}

	byName := map[enums.PlanName]models.RatePlan{}
	for _, p := range repo.plans {
		byName[p.Name] = p
	}
	silver, ok := byName[enums.PlanNameSilver]
	if !ok {
		t.Fatal("Silver plan missing from seed")
	}
	if !silver.PriceAmount.Equal(decimal.RequireFromString("19.99")) {
		t.Fatalf("unexpected Silver price %s", silver.PriceAmount)
	}
	if silver.MaxVMs != 3 || silver.CPUCores != 3 || silver.MaxBackups != 5 {
		t.Fatalf("unexpected Silver limits cpu=%d vms=%d backups=%d", silver.CPUCores, silver.MaxVMs, silver.MaxBackups)
	}
	if silver.Description == "" {
		t.Fatal("expected seeded Silver description")
	}
	bronze, ok := byName[enums.PlanNameBronze]
	if !ok {
		t.Fatal("Bronze plan missing from seed")
	}
	if bronze.MaxVMs != 1 || bronze.MaxBackups != 3 {
		t.Fatalf("unexpected Bronze limits vms=%d backups=%d", bronze.MaxVMs, bronze.MaxBackups)
	}
}

func TestEnsureDefaultsSkipsWhenCatalogPopulated(t *testing.T) {
	repo := &stubRepo{plans: []models.RatePlan{{ID: uuid.New(), Name: enums.PlanNameBronze}}}
	svc, _ := NewService(ServiceParams{Repo: repo})

	if err := svc.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	if len(repo.plans) != 1 {
		t.Fatalf("expected seed to be skipped, got %d plans", len(repo.plans))
	}
}

func TestCreateRejectsUnknownTier(t *testing.T) {
	svc, _ := NewService(ServiceParams{Repo: &stubRepo{}})

	_, err := svc.Create(context.Background(), CreatePlanInput{
		Name:        "Diamond",
		PriceAmount: decimal.NewFromInt(10),
		CPUCores:    1,
		MaxVMs:      1,
	})
	if err == nil {
		t.Fatal("expected validation error for unknown tier")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateConflictsOnDuplicateName(t *testing.T) {
	repo := &stubRepo{plans: []models.RatePlan{{ID: uuid.New(), Name: enums.PlanNameGold}}}
	svc, _ := NewService(ServiceParams{Repo: repo})

	_, err := svc.Create(context.Background(), CreatePlanInput{
		Name:        enums.PlanNameGold,
		PriceAmount: decimal.NewFromInt(50),
		CPUCores:    10,
		MaxVMs:      10,
	})
	if err == nil {
		t.Fatal("expected conflict error for duplicate plan")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	svc, _ := NewService(ServiceParams{Repo: &stubRepo{}})

	_, err := svc.Get(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected not found error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestUpdateValidatesLimits(t *testing.T) {
	plan := models.RatePlan{ID: uuid.New(), Name: enums.PlanNameBronze, CPUCores: 1, MaxVMs: 3}
	repo := &stubRepo{plans: []models.RatePlan{plan}}
	svc, _ := NewService(ServiceParams{Repo: repo})

	bad := 0
	_, err := svc.Update(context.Background(), plan.ID, UpdatePlanInput{MaxVMs: &bad})
	if err == nil {
		t.Fatal("expected validation error for non-positive max vms")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
