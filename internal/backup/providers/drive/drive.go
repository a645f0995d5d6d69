// Package drive implements the cloud-drive backup provider. Backups live
// in the application's private drive folder; the listing API returns only
// file ids and names, so all metadata is carried by the token name scheme.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shockbytes/dante/internal/auth"
	"github.com/shockbytes/dante/internal/backup"
	"github.com/shockbytes/dante/internal/entities"
)

const (
	// acronym tags every file this application writes. Files in the same
	// remote namespace that carry any other acronym are ignored.
	acronym   = "sbd"
	entryType = "man" // manually triggered backup

	fileExt        = ".json"
	defaultTimeout = 60 * time.Second
)

// Provider is the cloud-drive backup backend. It requires an account from
// the Google authentication source.
type Provider struct {
	baseURL  string
	device   string
	accounts auth.AccountProvider
	client   *http.Client
	logger   zerolog.Logger

	mu      sync.RWMutex
	enabled bool
}

// New creates a drive provider against the given API base URL.
func New(baseURL, device string, accounts auth.AccountProvider, logger zerolog.Logger) *Provider {
	return &Provider{
		baseURL:  baseURL,
		device:   device,
		accounts: accounts,
		client:   &http.Client{Timeout: defaultTimeout},
		logger:   logger.With().Str("provider", string(backup.StorageProviderDrive)).Logger(),
	}
}

func (p *Provider) Tag() backup.StorageProvider {
	return backup.StorageProviderDrive
}

// Initialize checks that the signed-in account comes from the Google
// source. Any other account kind cannot own the drive namespace.
func (p *Provider) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	account, err := p.accounts.Account(ctx)
	if err != nil || account.Source != entities.AccountSourceGoogle {
		p.enabled = false
		return backup.ErrUnauthenticated
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
	fileName := backup.FormatEntryName(acronym, entryType, now, len(content.Books), p.device, fileExt)
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

	endpoint := fmt.Sprintf("%s/upload?name=%s", p.baseURL, url.QueryEscape(fileName))
	req, err := p.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// listedFile is one entry of the drive listing response.
type listedFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (p *Provider) BackupEntries(ctx context.Context) ([]backup.MetadataState, error) {
	files, err := p.listFiles(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]backup.MetadataState, 0, len(files))
	for _, f := range files {
		// Metadata comes from the name alone; bodies are never downloaded
		// during listing.
		meta, err := backup.ParseEntryName(f.Name, acronym, fileExt)
		if err != nil {
			// Legacy and foreign formats share this namespace; drop them.
			p.logger.Debug().Err(err).Str("file", f.Name).Msg("skipping unrecognized drive entry")
			continue
		}
		meta.ID = f.ID
		meta.StorageProvider = p.Tag()
		entries = append(entries, backup.MetadataState{Entry: meta, Active: p.Enabled()})
	}
	return entries, nil
}

func (p *Provider) Content(ctx context.Context, entry backup.Metadata) (backup.Content, error) {
	endpoint := fmt.Sprintf("%s/download/%s", p.baseURL, url.PathEscape(entry.ID))
	req, err := p.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return backup.Content{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return backup.Content{}, fmt.Errorf("failed to download backup: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return backup.Content{}, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return backup.Content{}, fmt.Errorf("failed to read backup body: %w", err)
	}
	content, _, err := backup.Decode(data)
	if err != nil {
		return backup.Content{}, err
	}
	return content, nil
}

func (p *Provider) RemoveEntry(ctx context.Context, entry backup.Metadata) error {
	endpoint := fmt.Sprintf("%s/files/%s", p.baseURL, url.PathEscape(entry.ID))
	req, err := p.newRequest(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (p *Provider) RemoveAllEntries(ctx context.Context) error {
	entries, err := p.BackupEntries(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := p.RemoveEntry(ctx, e.Entry); err != nil {
			return err
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

func (p *Provider) listFiles(ctx context.Context) ([]listedFile, error) {
	req, err := p.newRequest(ctx, http.MethodGet, p.baseURL+"/files", nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list drive files: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var listing struct {
		Files []listedFile `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode drive listing: %w", err)
	}
	return listing.Files, nil
}

func (p *Provider) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	header, err := p.accounts.AuthorizationHeader(ctx)
	if err != nil {
		return nil, backup.ErrUnauthenticated
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", header)
	return req, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("drive API error (status %d): %s", resp.StatusCode, string(body))
}
