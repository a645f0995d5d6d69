package config

import (
	"os"

	"github.com/spf13/viper"
)

type (
	Config struct {
		Database
		Backup
		Drive
		Remote
		CSV
		ScheduledBackup
		Log
	}

	Database struct {
		Path string
	}

	Backup struct {
		// BaseDir is the directory the local file provider writes to.
		BaseDir string
		// Device is the label embedded into backup metadata.
		Device string
	}

	Drive struct {
		BaseURL string
	}

	Remote struct {
		BaseURL string
	}

	CSV struct {
		ExportDir string
	}

	ScheduledBackup struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}

	Log struct {
		Level string
	}
)

// deviceName resolves the device label, falling back to the hostname.
func deviceName(v *viper.Viper) string {
	if name := v.GetString("DEVICE_NAME"); name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil {
		return DefaultDeviceName
	}
	return host
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("backup_base_dir", DefaultBackupBaseDir)
	v.SetDefault("csv_export_dir", DefaultBackupBaseDir)
	v.SetDefault("device_name", "")
	v.SetDefault("drive_base_url", "")
	v.SetDefault("remote_base_url", "")
	v.SetDefault("scheduled_backup_enabled", false)
	v.SetDefault("scheduled_backup_schedule", "0 3 * * *") // Daily at 03:00
	v.SetDefault("log_level", "info")

	return &Config{
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Backup: Backup{
			BaseDir: v.GetString("BACKUP_BASE_DIR"),
			Device:  deviceName(v),
		},
		Drive: Drive{
			BaseURL: v.GetString("DRIVE_BASE_URL"),
		},
		Remote: Remote{
			BaseURL: v.GetString("REMOTE_BASE_URL"),
		},
		CSV: CSV{
			ExportDir: v.GetString("CSV_EXPORT_DIR"),
		},
		ScheduledBackup: ScheduledBackup{
			Enabled:  v.GetBool("SCHEDULED_BACKUP_ENABLED"),
			Schedule: v.GetString("SCHEDULED_BACKUP_SCHEDULE"),
		},
		Log: Log{
			Level: v.GetString("LOG_LEVEL"),
		},
	}
}
