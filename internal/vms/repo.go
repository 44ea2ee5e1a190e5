package vms

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/virtucloud/virtucloud-backend/pkg/db/models"
)

// Repository provides persistence for virtual machines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, vm *models.VM) error
	Update(ctx context.Context, vm *models.VM) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.VM, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.VM, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed VM repository.
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

func (r *repository) Create(ctx context.Context, vm *models.VM) error {
	return r.db.WithContext(ctx).Create(vm).Error
}

func (r *repository) Update(ctx context.Context, vm *models.VM) error {
	return r.db.WithContext(ctx).Save(vm).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.VM{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.VM, error) {
	var vm models.VM
	err := r.db.WithContext(ctx).First(&vm, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vm, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.VM, error) {
	var vms []models.VM
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&vms).Error
	if err != nil {
		return nil, err
	}
	return vms, nil
}

func (r *repository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VM{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
