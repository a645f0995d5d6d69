package entities

import (
	"time"
)

// AccountSource identifies where an account was authenticated.
type AccountSource string

const (
	AccountSourceGoogle AccountSource = "google"
	AccountSourceMail   AccountSource = "mail"
	AccountSourceAnon   AccountSource = "anonymous"
)

// AuthToken stores the bearer credentials for an authenticated account.
type AuthToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Source identifies the authentication backend the account came from.
	Source AccountSource `gorm:"type:varchar(50);not null;uniqueIndex:idx_source_account" json:"source"`

	// AccountID is the user's identifier on the source (e-mail or subject id).
	AccountID string `gorm:"type:varchar(255);not null;uniqueIndex:idx_source_account" json:"account_id"`

	DisplayName string `gorm:"type:varchar(255)" json:"display_name,omitempty"`

	// AccessToken is the raw bearer token presented to remote backends.
	AccessToken string `gorm:"type:text;not null" json:"-"`

	// TokenType is typically "Bearer".
	TokenType string `gorm:"type:varchar(50);default:Bearer" json:"token_type"`

	// ExpiresAt is when the token expires (nullable for non-expiring tokens).
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// LastUsedAt tracks when the token was last presented.
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

func (AuthToken) TableName() string {
	return "auth_tokens"
}

// IsExpired checks if the token has expired, with a small safety margin.
func (t *AuthToken) IsExpired() bool {
	if t.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(5 * time.Minute).After(*t.ExpiresAt)
}
