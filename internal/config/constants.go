package config

// Default paths and labels
const (
	// DefaultDatabasePath is the default path for the local library database
	DefaultDatabasePath = "./dante.db"

	// DefaultBackupBaseDir is the default directory for file-backed backups
	DefaultBackupBaseDir = "./dante-backups"

	// DefaultDeviceName is used when no device name is configured and the
	// hostname cannot be resolved
	DefaultDeviceName = "unknown-device"
)
