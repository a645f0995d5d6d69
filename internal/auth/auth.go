// Package auth defines the account-state contract the cloud-backed backup
// providers depend on. Providers see only this contract, never a concrete
// authentication implementation.
package auth

import (
	"context"
	"errors"

	"github.com/shockbytes/dante/internal/entities"
)

// ErrNoAccount indicates no account is currently signed in.
var ErrNoAccount = errors.New("no signed-in account")

// Account is the signed-in user as seen by backup providers.
type Account struct {
	ID          string
	DisplayName string
	Source      entities.AccountSource
}

// AccountProvider exposes the current account state and the credentials
// needed to call authenticated backends.
type AccountProvider interface {
	// Account returns the signed-in account, or ErrNoAccount.
	Account(ctx context.Context) (*Account, error)

	// AuthorizationHeader returns the value for the Authorization header,
	// e.g. "Bearer <token>", or ErrNoAccount when signed out.
	AuthorizationHeader(ctx context.Context) (string, error)
}

// StaticAccountProvider serves a fixed account; used by the CLI wiring and
// by tests.
type StaticAccountProvider struct {
	Acct  *Account
	Token string
}

func (p *StaticAccountProvider) Account(ctx context.Context) (*Account, error) {
	if p.Acct == nil {
		return nil, ErrNoAccount
	}
	return p.Acct, nil
}

func (p *StaticAccountProvider) AuthorizationHeader(ctx context.Context) (string, error) {
	if p.Acct == nil || p.Token == "" {
		return "", ErrNoAccount
	}
	return "Bearer " + p.Token, nil
}
