// Package local implements the filesystem backup provider. Backups are
// plain envelope files under a fixed base directory; metadata is read from
// inside the file, not from its name.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shockbytes/dante/internal/backup"
	"github.com/shockbytes/dante/internal/permissions"
)

const (
	fileNamePrefix = "dante-backup-"
	fileNameSuffix = ".json"
	mimeTypeJSON   = "application/json"
)

// Provider is the local filesystem backup backend.
type Provider struct {
	baseDir string
	device  string
	perms   permissions.Checker
	logger  zerolog.Logger

	mu      sync.RWMutex
	enabled bool
}

// New creates a local file provider rooted at baseDir.
func New(baseDir, device string, perms permissions.Checker, logger zerolog.Logger) *Provider {
	return &Provider{
		baseDir: baseDir,
		device:  device,
		perms:   perms,
		logger:  logger.With().Str("provider", string(backup.StorageProviderLocal)).Logger(),
	}
}

func (p *Provider) Tag() backup.StorageProvider {
	return backup.StorageProviderLocal
}

// Initialize verifies storage permission and creates the base directory.
// Either failure disables the provider and is surfaced once.
func (p *Provider) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.perms.VerifyPermissions(permissions.ScopeStorage) {
		p.enabled = false
		return backup.ErrPermissionDenied
	}

	if err := os.MkdirAll(p.baseDir, 0o755); err != nil {
		p.enabled = false
		return &backup.ConnectionError{Provider: p.Tag(), Err: err}
	}

	p.enabled = true
	return nil
}

func (p *Provider) Enabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enabled
}

func (p *Provider) Backup(ctx context.Context, content backup.Content) error {
	if !p.Enabled() {
		return &backup.ProviderUnavailableError{Provider: p.Tag()}
	}

	now := time.Now()
	fileName := fmt.Sprintf("%s%d%s", fileNamePrefix, now.UnixMilli(), fileNameSuffix)
	meta := backup.Metadata{
		ID:              fileName,
		FileName:        fileName,
		Device:          p.device,
		StorageProvider: p.Tag(),
		BookCount:       len(content.Books),
		Timestamp:       now,
	}

	data, err := backup.Encode(content, meta)
	if err != nil {
		return err
	}

	path := filepath.Join(p.baseDir, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write backup file %s: %w", path, err)
	}
	return nil
}

func (p *Provider) BackupEntries(ctx context.Context) ([]backup.MetadataState, error) {
	files, err := p.backupFiles()
	if err != nil {
		return nil, err
	}

	entries := make([]backup.MetadataState, 0, len(files))
	for _, name := range files {
		meta, err := p.readMetadata(name)
		if err != nil {
			// A single corrupt file must not fail the whole listing.
			p.logger.Warn().Err(err).Str("file", name).Msg("skipping corrupt backup entry")
			continue
		}
		entries = append(entries, backup.MetadataState{Entry: meta, Active: p.Enabled()})
	}
	return entries, nil
}

// LocalFileEntries lists backups with their filesystem paths, the
// with-local-file metadata variant only file-backed providers can serve.
func (p *Provider) LocalFileEntries(ctx context.Context) ([]backup.LocalFileMetadata, error) {
	states, err := p.BackupEntries(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]backup.LocalFileMetadata, 0, len(states))
	for _, s := range states {
		entries = append(entries, backup.LocalFileMetadata{
			Metadata:  s.Entry,
			LocalPath: filepath.Join(p.baseDir, s.Entry.ID),
			MIMEType:  mimeTypeJSON,
		})
	}
	return entries, nil
}

func (p *Provider) Content(ctx context.Context, entry backup.Metadata) (backup.Content, error) {
	data, err := os.ReadFile(filepath.Join(p.baseDir, entry.ID))
	if err != nil {
		return backup.Content{}, fmt.Errorf("failed to read backup file %s: %w", entry.ID, err)
	}
	content, _, err := backup.Decode(data)
	if err != nil {
		return backup.Content{}, err
	}
	return content, nil
}

func (p *Provider) RemoveEntry(ctx context.Context, entry backup.Metadata) error {
	if err := os.Remove(filepath.Join(p.baseDir, entry.ID)); err != nil {
		return fmt.Errorf("failed to remove backup file %s: %w", entry.ID, err)
	}
	return nil
}

func (p *Provider) RemoveAllEntries(ctx context.Context) error {
	files, err := p.backupFiles()
	if err != nil {
		return err
	}
	for _, name := range files {
		if err := os.Remove(filepath.Join(p.baseDir, name)); err != nil {
			return fmt.Errorf("failed to remove backup file %s: %w", name, err)
		}
	}
	return nil
}

func (p *Provider) Teardown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = false
	return nil
}

func (p *Provider) backupFiles() ([]string, error) {
	entries, err := os.ReadDir(p.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list backup directory %s: %w", p.baseDir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, fileNamePrefix) || !strings.HasSuffix(name, fileNameSuffix) {
			continue
		}
		files = append(files, name)
	}
	return files, nil
}

func (p *Provider) readMetadata(name string) (backup.Metadata, error) {
	data, err := os.ReadFile(filepath.Join(p.baseDir, name))
	if err != nil {
		return backup.Metadata{}, err
	}
	_, meta, err := backup.Decode(data)
	if err != nil {
		return backup.Metadata{}, err
	}
	meta.ID = name
	meta.FileName = name
	meta.StorageProvider = p.Tag()
	return meta, nil
}
