package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/shockbytes/dante/internal/entities"
)

// TokenStore persists bearer credentials per account source.
type TokenStore struct {
	db *gorm.DB
}

// NewTokenStore creates a token store over the shared database handle.
func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

// SaveToken creates or replaces the stored token for (source, accountID).
func (s *TokenStore) SaveToken(token *entities.AuthToken) error {
	var existing entities.AuthToken
	result := s.db.Where("source = ? AND account_id = ?", token.Source, token.AccountID).First(&existing)
	if result.Error == gorm.ErrRecordNotFound {
		return s.db.Create(token).Error
	} else if result.Error != nil {
		return result.Error
	}

	token.ID = existing.ID
	token.CreatedAt = existing.CreatedAt
	return s.db.Save(token).Error
}

// GetToken retrieves the stored token for a source, or nil when absent.
func (s *TokenStore) GetToken(source entities.AccountSource) (*entities.AuthToken, error) {
	var token entities.AuthToken
	err := s.db.Where("source = ?", source).Order("updated_at DESC").First(&token).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// DeleteToken removes the stored token for (source, accountID).
func (s *TokenStore) DeleteToken(source entities.AccountSource, accountID string) error {
	return s.db.Where("source = ? AND account_id = ?", source, accountID).
		Delete(&entities.AuthToken{}).Error
}

// UpdateLastUsed stamps the token's last-used time.
func (s *TokenStore) UpdateLastUsed(source entities.AccountSource, accountID string) error {
	now := time.Now()
	return s.db.Model(&entities.AuthToken{}).
		Where("source = ? AND account_id = ?", source, accountID).
		Update("last_used_at", &now).Error
}

// StoredAccountProvider adapts the token store to the AccountProvider
// contract, caching the resolved account between calls.
type StoredAccountProvider struct {
	mu     sync.RWMutex
	store  *TokenStore
	source entities.AccountSource

	account *Account
	token   string
}

// NewStoredAccountProvider builds an AccountProvider over the token store
// for one authentication source.
func NewStoredAccountProvider(store *TokenStore, source entities.AccountSource) *StoredAccountProvider {
	return &StoredAccountProvider{store: store, source: source}
}

func (p *StoredAccountProvider) Account(ctx context.Context) (*Account, error) {
	p.mu.RLock()
	if p.account != nil {
		defer p.mu.RUnlock()
		return p.account, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	stored, err := p.store.GetToken(p.source)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored token: %w", err)
	}
	if stored == nil || stored.IsExpired() {
		return nil, ErrNoAccount
	}

	account := &Account{
		ID:          stored.AccountID,
		DisplayName: stored.DisplayName,
		Source:      stored.Source,
	}
	// Prefer identity claims baked into the token itself when present.
	if claims := inspectToken(stored.AccessToken); claims != nil {
		if claims.Subject != "" {
			account.ID = claims.Subject
		}
		if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
			return nil, ErrNoAccount
		}
	}

	p.account = account
	p.token = stored.AccessToken
	_ = p.store.UpdateLastUsed(stored.Source, stored.AccountID)
	return account, nil
}

func (p *StoredAccountProvider) AuthorizationHeader(ctx context.Context) (string, error) {
	if _, err := p.Account(ctx); err != nil {
		return "", err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return "Bearer " + p.token, nil
}

// inspectToken reads the registered claims of a JWT without verifying its
// signature; verification belongs to the issuing backend. Opaque tokens
// return nil.
func inspectToken(raw string) *jwt.RegisteredClaims {
	if strings.Count(raw, ".") != 2 {
		return nil
	}
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil
	}
	return claims
}
