package backup

import (
	"time"
)

// StorageProvider tags which backend produced a backup. Routing dispatches
// on this tag; it is persisted inside backup envelopes and file names, so
// the values must remain stable across versions.
type StorageProvider string

const (
	StorageProviderLocal  StorageProvider = "local"
	StorageProviderDrive  StorageProvider = "gdrive"
	StorageProviderRemote StorageProvider = "remote"
	StorageProviderCSV    StorageProvider = "csv"
)

// Metadata describes one stored backup without carrying its payload.
// ID is unique within a single provider's namespace, not globally.
type Metadata struct {
	ID              string          `json:"id"`
	FileName        string          `json:"file_name"`
	Device          string          `json:"device"`
	StorageProvider StorageProvider `json:"storage_provider"`
	BookCount       int             `json:"book_count"`
	Timestamp       time.Time       `json:"timestamp"`
}

// LocalFileMetadata is the with-local-file variant of Metadata, only
// meaningful for file-backed providers.
type LocalFileMetadata struct {
	Metadata
	LocalPath string `json:"local_path"`
	MIMEType  string `json:"mime_type"`
}

// MetadataState wraps a listing entry with the owning provider's enabled
// state. Inactive entries are listed but not actionable.
type MetadataState struct {
	Entry  Metadata `json:"entry"`
	Active bool     `json:"active"`
}
