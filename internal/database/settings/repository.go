// Package settings provides the persisted key-value store used for backup
// bookkeeping and scheduler state.
package settings

import (
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/shockbytes/dante/internal/entities"
)

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSetting retrieves a setting by key.
func (r *Repository) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// SetSetting creates or updates a setting.
func (r *Repository) SetSetting(key, value string) error {
	var setting entities.Setting
	result := r.db.Where("key = ?", key).First(&setting)

	if result.Error == gorm.ErrRecordNotFound {
		setting = entities.Setting{
			Key:   key,
			Value: value,
		}
		return r.db.Create(&setting).Error
	} else if result.Error != nil {
		return result.Error
	}

	setting.Value = value
	return r.db.Save(&setting).Error
}

// DeleteSetting removes a setting; deleting a missing key is not an error.
func (r *Repository) DeleteSetting(key string) error {
	err := r.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	return err
}

// LastBackup returns the most recent backup instant and the provider tag
// that produced it. The boolean reports whether a backup was ever recorded;
// a missing value is an expected state, not an error.
func (r *Repository) LastBackup() (time.Time, string, bool) {
	atSetting, err := r.GetSetting(entities.SettingKeyLastBackupAt)
	if err != nil || atSetting.Value == "" {
		return time.Time{}, "", false
	}
	millis, err := strconv.ParseInt(atSetting.Value, 10, 64)
	if err != nil {
		return time.Time{}, "", false
	}

	provider := ""
	if p, err := r.GetSetting(entities.SettingKeyLastBackupProvider); err == nil {
		provider = p.Value
	}
	return time.UnixMilli(millis).UTC(), provider, true
}

// SetLastBackup records the side state written after every successful backup.
func (r *Repository) SetLastBackup(at time.Time, provider string) error {
	if err := r.SetSetting(entities.SettingKeyLastBackupAt, strconv.FormatInt(at.UnixMilli(), 10)); err != nil {
		return err
	}
	return r.SetSetting(entities.SettingKeyLastBackupProvider, provider)
}
