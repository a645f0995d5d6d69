package settings

import (
	"strconv"
	"time"

	"github.com/shockbytes/dante/internal/config"
	"github.com/shockbytes/dante/internal/entities"
)

// ScheduledBackupConfig holds the automatic-backup settings with their
// resolution priority: database override, then environment, then defaults.
type ScheduledBackupConfig struct {
	Enabled  bool
	Schedule string
}

// ScheduledBackupStatus reports the outcome of the last scheduled run.
type ScheduledBackupStatus struct {
	LastRun *time.Time
	Status  string // "success", "failed", or "" if never run
	Message string
}

// GetScheduledBackupConfig resolves the effective scheduled-backup config.
func (r *Repository) GetScheduledBackupConfig(cfg config.ScheduledBackup) ScheduledBackupConfig {
	resolved := ScheduledBackupConfig{
		Enabled:  cfg.Enabled,
		Schedule: cfg.Schedule,
	}

	if setting, err := r.GetSetting(entities.SettingKeyScheduledBackupEnabled); err == nil {
		if enabled, err := strconv.ParseBool(setting.Value); err == nil {
			resolved.Enabled = enabled
		}
	}
	if setting, err := r.GetSetting(entities.SettingKeyScheduledBackupSchedule); err == nil && setting.Value != "" {
		resolved.Schedule = setting.Value
	}
	return resolved
}

// SetScheduledBackupEnabled persists the enabled flag as a database override.
func (r *Repository) SetScheduledBackupEnabled(enabled bool) error {
	return r.SetSetting(entities.SettingKeyScheduledBackupEnabled, strconv.FormatBool(enabled))
}

// SetScheduledBackupSchedule persists the cron schedule as a database override.
func (r *Repository) SetScheduledBackupSchedule(schedule string) error {
	return r.SetSetting(entities.SettingKeyScheduledBackupSchedule, schedule)
}

// GetScheduledBackupStatus returns the last scheduled run's outcome.
func (r *Repository) GetScheduledBackupStatus() ScheduledBackupStatus {
	var status ScheduledBackupStatus

	if setting, err := r.GetSetting(entities.SettingKeyScheduledBackupLastAt); err == nil {
		if at, err := time.Parse(time.RFC3339, setting.Value); err == nil {
			status.LastRun = &at
		}
	}
	if setting, err := r.GetSetting(entities.SettingKeyScheduledBackupStatus); err == nil {
		status.Status = setting.Value
	}
	if setting, err := r.GetSetting(entities.SettingKeyScheduledBackupMessage); err == nil {
		status.Message = setting.Value
	}
	return status
}

// SetScheduledBackupStatus updates the last-run outcome.
func (r *Repository) SetScheduledBackupStatus(status, message string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	if err := r.SetSetting(entities.SettingKeyScheduledBackupLastAt, now); err != nil {
		return err
	}
	if err := r.SetSetting(entities.SettingKeyScheduledBackupStatus, status); err != nil {
		return err
	}
	return r.SetSetting(entities.SettingKeyScheduledBackupMessage, message)
}

// ClearScheduledBackupSettings removes all database overrides, reverting
// to environment and default values.
func (r *Repository) ClearScheduledBackupSettings() error {
	keys := []string{
		entities.SettingKeyScheduledBackupEnabled,
		entities.SettingKeyScheduledBackupSchedule,
	}
	for _, key := range keys {
		if err := r.DeleteSetting(key); err != nil {
			continue
		}
	}
	return nil
}
