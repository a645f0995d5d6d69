package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, DefaultBackupBaseDir, cfg.Backup.BaseDir)
	assert.NotEmpty(t, cfg.Backup.Device) // hostname fallback
	assert.False(t, cfg.ScheduledBackup.Enabled)
	assert.Equal(t, "0 3 * * *", cfg.ScheduledBackup.Schedule)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/library.db")
	t.Setenv("BACKUP_BASE_DIR", "/tmp/backups")
	t.Setenv("DEVICE_NAME", "my laptop")
	t.Setenv("SCHEDULED_BACKUP_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := NewConfig()

	assert.Equal(t, "/tmp/library.db", cfg.Database.Path)
	assert.Equal(t, "/tmp/backups", cfg.Backup.BaseDir)
	assert.Equal(t, "my laptop", cfg.Backup.Device)
	assert.True(t, cfg.ScheduledBackup.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}
