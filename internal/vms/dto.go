package vms

import (
	"time"

	"github.com/google/uuid"

	"github.com/virtucloud/virtucloud-backend/pkg/db/models"
	"github.com/virtucloud/virtucloud-backend/pkg/enums"
)

// VMDTO is the transport shape for a virtual machine.
type VMDTO struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Status        enums.VMStatus `json:"status"`
	CPUCores      int            `json:"cpu_cores"`
	MemoryMB      int            `json:"memory_mb"`
	DiskGB        int            `json:"disk_gb"`
	Region        string         `json:"region"`
	LastStartedAt *time.Time     `json:"last_started_at,omitempty"`
	LastStoppedAt *time.Time     `json:"last_stopped_at,omitempty"`
	LastBackupAt  *time.Time     `json:"last_backup_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// FromModel maps a machine record onto its transport shape.
func FromModel(vm *models.VM) *VMDTO {
	if vm == nil {
		return nil
	}
	return &VMDTO{
		ID:            vm.ID,
		Name:          vm.Name,
		Status:        vm.Status,
		CPUCores:      vm.CPUCores,
		MemoryMB:      vm.MemoryMB,
		DiskGB:        vm.DiskGB,
		Region:        vm.Region,
		LastStartedAt: vm.LastStartedAt,
		LastStoppedAt: vm.LastStoppedAt,
		LastBackupAt:  vm.LastBackupAt,
		CreatedAt:     vm.CreatedAt,
		UpdatedAt:     vm.UpdatedAt,
	}
}

// FromModels maps a list of machine records.
func FromModels(records []models.VM) []VMDTO {
	dtos := make([]VMDTO, 0, len(records))
	for i := range records {
		dtos = append(dtos, *FromModel(&records[i]))
	}
	return dtos
}

// CreateVMRequest provisions a new machine.
type CreateVMRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=64"`
	CPUCores int    `json:"cpu_cores" validate:"omitempty,min=1"`
	MemoryMB int    `json:"memory_mb" validate:"omitempty,min=256"`
	DiskGB   int    `json:"disk_gb" validate:"omitempty,min=1"`
	Region   string `json:"region,omitempty"`
}

// UpdateVMRequest changes machine attributes. Nil fields are left untouched.
type UpdateVMRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=64"`
	CPUCores *int    `json:"cpu_cores,omitempty" validate:"omitempty,min=1"`
	MemoryMB *int    `json:"memory_mb,omitempty" validate:"omitempty,min=256"`
	DiskGB   *int    `json:"disk_gb,omitempty" validate:"omitempty,min=1"`
}

// MoveVMRequest relocates a machine to another region.
type MoveVMRequest struct {
	Region string `json:"region" validate:"required"`
}
