// Package migrate evolves the local store's schema across releases.
//
// The engine is a strict sequence of versioned steps: on store open the
// persisted version is read and every step above it is applied in ascending
// order, one transaction per step, the new version persisted only after the
// step completes. A failing step halts startup at the last good version;
// there is no partial-step commit and no skipping or reordering.
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

// Up applies every pending migration step to the store.
func Up(ctx context.Context, db *sql.DB) error {
	p, err := NewProvider(db, Migrations()...)
	if err != nil {
		return err
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	return nil
}

// Version returns the currently persisted schema version.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	p, err := NewProvider(db, Migrations()...)
	if err != nil {
		return 0, err
	}
	return p.GetDBVersion(ctx)
}

// NewProvider builds a migration provider over an explicit step list.
// Tests use truncated or extended lists to exercise partial application
// and halt-on-failure behavior.
func NewProvider(db *sql.DB, steps ...*goose.Migration) (*goose.Provider, error) {
	p, err := goose.NewProvider(
		goose.DialectSQLite3,
		db,
		nil,
		goose.WithGoMigrations(steps...),
		goose.WithDisableGlobalRegistry(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build migration provider: %w", err)
	}
	return p, nil
}
