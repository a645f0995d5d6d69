package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Backup bookkeeping
	SettingKeyLastBackupAt       = "backup_last_at"
	SettingKeyLastBackupProvider = "backup_last_provider"

	// Scheduled backup settings
	SettingKeyScheduledBackupEnabled  = "scheduled_backup_enabled"
	SettingKeyScheduledBackupSchedule = "scheduled_backup_schedule"
	SettingKeyScheduledBackupLastAt   = "scheduled_backup_last_at"
	SettingKeyScheduledBackupStatus   = "scheduled_backup_last_status"
	SettingKeyScheduledBackupMessage  = "scheduled_backup_last_message"
)
