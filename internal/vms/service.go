package vms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/virtucloud/virtucloud-backend/pkg/db/models"
	"github.com/virtucloud/virtucloud-backend/pkg/enums"
	pkgerrors "github.com/virtucloud/virtucloud-backend/pkg/errors"
	"github.com/virtucloud/virtucloud-backend/pkg/logger"
)

const (
	defaultMemoryMB = 1024
	defaultDiskGB   = 20
	defaultRegion   = "us-east-1"
)

type activeSubscriptionSource interface {
	ActiveFor(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

// ServiceParams bundles the dependencies required to build the service.
type ServiceParams struct {
	Repo          Repository
	Subscriptions activeSubscriptionSource
	Logger        *logger.Logger
}

// Service manages VM provisioning and lifecycle within plan limits.
type Service struct {
	repo Repository
	subs activeSubscriptionSource
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds a VM service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Subscriptions == nil {
		return nil, errors.New("subscription source is required")
	}
	return &Service{
		repo: params.Repo,
		subs: params.Subscriptions,
		logg: params.Logger,
		now:  time.Now,
	}, nil
}

// Create provisions a machine after checking the plan's VM quota.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateVMRequest) (*models.VM, error) {
	sub, err := s.requireSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count vms")
	}
	if count >= int64(sub.MaxVMs) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden,
			fmt.Sprintf("VM limit reached: Your plan (%s) allows up to %d VMs", sub.PlanName, sub.MaxVMs))
	}

	cores := req.CPUCores
	if cores <= 0 {
		cores = 1
	}
	if cores > sub.CPUCores {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("your plan (%s) allows up to %d CPU cores per VM", sub.PlanName, sub.CPUCores))
	}

	vm := &models.VM{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     strings.TrimSpace(req.Name),
		Status:   enums.VMStatusStopped,
		CPUCores: cores,
		MemoryMB: req.MemoryMB,
		DiskGB:   req.DiskGB,
		Region:   req.Region,
	}
	if vm.MemoryMB <= 0 {
		vm.MemoryMB = defaultMemoryMB
	}
	if vm.DiskGB <= 0 {
		vm.DiskGB = defaultDiskGB
	}
	if vm.Region == "" {
		vm.Region = defaultRegion
	}

	if err := s.repo.Create(ctx, vm); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create vm")
	}
	s.logVM(ctx, vm, "vm created")
	return vm, nil
}

// List returns the user's machines.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.VM, error) {
	vms, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list vms")
	}
	return vms, nil
}

// Get returns a machine owned by the user.
func (s *Service) Get(ctx context.Context, userID, vmID uuid.UUID) (*models.VM, error) {
	return s.ownedVM(ctx, userID, vmID)
}

// Update changes machine attributes within the plan's per-VM core limit.
func (s *Service) Update(ctx context.Context, userID, vmID uuid.UUID, req UpdateVMRequest) (*models.VM, error) {
	vm, err := s.ownedVM(ctx, userID, vmID)
	if err != nil {
		return nil, err
	}

	if req.CPUCores != nil {
		sub, err := s.requireSubscription(ctx, userID)
		if err != nil {
			return nil, err
		}
		if *req.CPUCores <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cpu cores must be positive")
		}
		if *req.CPUCores > sub.CPUCores {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("your plan (%s) allows up to %d CPU cores per VM", sub.PlanName, sub.CPUCores))
		}
		vm.CPUCores = *req.CPUCores
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		vm.Name = name
	}
	if req.MemoryMB != nil {
		if *req.MemoryMB <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "memory must be positive")
		}
		vm.MemoryMB = *req.MemoryMB
	}
	if req.DiskGB != nil {
		if *req.DiskGB <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "disk size must be positive")
		}
		vm.DiskGB = *req.DiskGB
	}

	if err := s.repo.Update(ctx, vm); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update vm")
	}
	return vm, nil
}

// Delete removes a machine owned by the user.
func (s *Service) Delete(ctx context.Context, userID, vmID uuid.UUID) error {
	vm, err := s.ownedVM(ctx, userID, vmID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, vm.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete vm")
	}
	s.logVM(ctx, vm, "vm deleted")
	return nil
}

// Start boots a machine. An active subscription is required to run VMs.
func (s *Service) Start(ctx context.Context, userID, vmID uuid.UUID) (*models.VM, error) {
	vm, err := s.ownedVM(ctx, userID, vmID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireSubscription(ctx, userID); err != nil {
		return nil, err
	}
	if vm.Status == enums.VMStatusRunning {
		return vm, nil
	}

	now := s.now().UTC()
	vm.Status = enums.VMStatusRunning
	vm.LastStartedAt = &now
	if err := s.repo.Update(ctx, vm); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "start vm")
	}
	s.logVM(ctx, vm, "vm started")
	return vm, nil
}

// Stop halts a running or suspended machine.
func (s *Service) Stop(ctx context.Context, userID, vmID uuid.UUID) (*models.VM, error) {
	vm, err := s.ownedVM(ctx, userID, vmID)
	if err != nil {
		return nil, err
	}
	if vm.Status == enums.VMStatusStopped {
		return vm, nil
	}

	now := s.now().UTC()
	vm.Status = enums.VMStatusStopped
	vm.LastStoppedAt = &now
	if err := s.repo.Update(ctx, vm); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stop vm")
	}
	s.logVM(ctx, vm, "vm stopped")
	return vm, nil
}

// Backup records a backup of the machine's disk.
func (s *Service) Backup(ctx context.Context, userID, vmID uuid.UUID) (*models.VM, error) {
	vm, err := s.ownedVM(ctx, userID, vmID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	vm.LastBackupAt = &now
	if err := s.repo.Update(ctx, vm); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "backup vm")
	}
	s.logVM(ctx, vm, "vm backup recorded")
	return vm, nil
}

// Move relocates a stopped machine to another region.
func (s *Service) Move(ctx context.Context, userID, vmID uuid.UUID, req MoveVMRequest) (*models.VM, error) {
	region := strings.TrimSpace(req.Region)
	if region == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "region is required")
	}

	vm, err := s.ownedVM(ctx, userID, vmID)
	if err != nil {
		return nil, err
	}
	if vm.Status == enums.VMStatusRunning {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "stop the VM before moving it")
	}
	if vm.Region == region {
		return vm, nil
	}

	vm.Region = region
	if err := s.repo.Update(ctx, vm); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "move vm")
	}
	s.logVM(ctx, vm, "vm moved")
	return vm, nil
}

func (s *Service) ownedVM(ctx context.Context, userID, vmID uuid.UUID) (*models.VM, error) {
	vm, err := s.repo.FindByID(ctx, vmID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find vm")
	}
	if vm == nil || vm.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vm not found")
	}
	return vm, nil
}

func (s *Service) requireSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.subs.ActiveFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "an active subscription is required")
	}
	return sub, nil
}

func (s *Service) logVM(ctx context.Context, vm *models.VM, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithVMID(ctx, vm.ID.String()), msg)
}
