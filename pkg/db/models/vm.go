package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/virtucloud/virtucloud-backend/pkg/enums"
)

// VM is a provisioned virtual machine owned by a user.
type VM struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index"`
	Name          string         `gorm:"column:name;not null"`
	Status        enums.VMStatus `gorm:"column:status;type:text;not null;default:'stopped'"`
	CPUCores      int            `gorm:"column:cpu_cores;not null;default:1"`
	MemoryMB      int            `gorm:"column:memory_mb;not null;default:1024"`
	DiskGB        int            `gorm:"column:disk_gb;not null;default:20"`
	Region        string         `gorm:"column:region;not null;default:'us-east-1'"`
	LastStartedAt *time.Time     `gorm:"column:last_started_at"`
	LastStoppedAt *time.Time     `gorm:"column:last_stopped_at"`
	LastBackupAt  *time.Time     `gorm:"column:last_backup_at"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
