// Package database owns the local persistent store. The schema is evolved
// exclusively through the versioned migration engine run once at open;
// entity-level mutations go through the per-entity repositories.
package database

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shockbytes/dante/internal/database/migrate"
)

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the SQLite store at dbPath and brings its schema up to
// the latest version. A failing migration step is fatal to store startup.
func NewDatabase(ctx context.Context, dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying connection: %w", err)
	}

	if err := migrate.Up(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
