// Package remote implements the backup provider backed by the hosted
// backup service. All data is scoped to the authenticated account; the
// service stores envelopes verbatim and returns structured listings.
package remote

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
)

const (
	backupsPath    = "/api/v1/backups"
	defaultTimeout = 30 * time.Second
)

// Provider is the remote-service backup backend.
type Provider struct {
	baseURL  string
	device   string
	accounts auth.AccountProvider
	client   *http.Client
	logger   zerolog.Logger

	mu      sync.RWMutex
	enabled bool
}

// New creates a remote provider against the given service base URL.
func New(baseURL, device string, accounts auth.AccountProvider, logger zerolog.Logger) *Provider {
	return &Provider{
		baseURL:  baseURL,
		device:   device,
		accounts: accounts,
		client:   &http.Client{Timeout: defaultTimeout},
		logger:   logger.With().Str("provider", string(backup.StorageProviderRemote)).Logger(),
	}
}

func (p *Provider) Tag() backup.StorageProvider {
	return backup.StorageProviderRemote
}

// Initialize requires a signed-in account of any source; the service
// itself scopes data per account.
func (p *Provider) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.accounts.Account(ctx); err != nil {
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

// backupDTO is the service's listing and fetch representation.
type backupDTO struct {
	ID        string          `json:"id"`
	FileName  string          `json:"file_name"`
	Device    string          `json:"device"`
	Timestamp int64           `json:"timestamp"` // unix millis
	BookCount int             `json:"book_count"`
	OwnerID   string          `json:"owner_id"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func (p *Provider) Backup(ctx context.Context, content backup.Content) error {
	if !p.Enabled() {
		return &backup.ProviderUnavailableError{Provider: p.Tag()}
	}

	now := time.Now()
	fileName := fmt.Sprintf("dante-backup-%d.json", now.UnixMilli())
	meta := backup.Metadata{
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

	req, err := p.newRequest(ctx, http.MethodPost, p.baseURL+backupsPath, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (p *Provider) BackupEntries(ctx context.Context) ([]backup.MetadataState, error) {
	req, err := p.newRequest(ctx, http.MethodGet, p.baseURL+backupsPath, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var dtos []backupDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("failed to decode backup listing: %w", err)
	}

	entries := make([]backup.MetadataState, 0, len(dtos))
	for _, dto := range dtos {
		if dto.ID == "" || dto.Timestamp <= 0 {
			p.logger.Warn().Str("id", dto.ID).Msg("skipping malformed remote backup entry")
			continue
		}
		entries = append(entries, backup.MetadataState{
			Entry: backup.Metadata{
				ID:              dto.ID,
				FileName:        dto.FileName,
				Device:          dto.Device,
				StorageProvider: p.Tag(),
				BookCount:       dto.BookCount,
				Timestamp:       time.UnixMilli(dto.Timestamp).UTC(),
			},
			Active: p.Enabled(),
		})
	}
	return entries, nil
}

// Content fetches one backup. The service returns the owner alongside the
// payload; a mismatch with the signed-in account rejects the restore.
func (p *Provider) Content(ctx context.Context, entry backup.Metadata) (backup.Content, error) {
	account, err := p.accounts.Account(ctx)
	if err != nil {
		return backup.Content{}, backup.ErrUnauthenticated
	}

	endpoint := p.baseURL + backupsPath + "/" + url.PathEscape(entry.ID)
	req, err := p.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return backup.Content{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return backup.Content{}, fmt.Errorf("failed to fetch backup: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return backup.Content{}, err
	}

	var dto backupDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return backup.Content{}, fmt.Errorf("failed to decode backup response: %w", err)
	}
	if dto.OwnerID != account.ID {
		return backup.Content{}, fmt.Errorf("backup %s belongs to another account: %w", entry.ID, backup.ErrUnauthenticated)
	}

	content, _, err := backup.Decode(dto.Data)
	if err != nil {
		return backup.Content{}, err
	}
	return content, nil
}

func (p *Provider) RemoveEntry(ctx context.Context, entry backup.Metadata) error {
	endpoint := p.baseURL + backupsPath + "/" + url.PathEscape(entry.ID)
	return p.doDelete(ctx, endpoint)
}

func (p *Provider) RemoveAllEntries(ctx context.Context) error {
	return p.doDelete(ctx, p.baseURL+backupsPath)
}

func (p *Provider) Teardown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = false
	return nil
}

func (p *Provider) doDelete(ctx context.Context, endpoint string) error {
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
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return backup.ErrUnauthenticated
	}
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("backup service error (status %d): %s", resp.StatusCode, string(body))
}
