// Package cli implements the command-line commands. Each command owns its
// flag set; shared wiring lives in App.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shockbytes/dante/internal/auth"
	"github.com/shockbytes/dante/internal/backup"
	csvprovider "github.com/shockbytes/dante/internal/backup/providers/csv"
	"github.com/shockbytes/dante/internal/backup/providers/drive"
	"github.com/shockbytes/dante/internal/backup/providers/local"
	"github.com/shockbytes/dante/internal/backup/providers/remote"
	"github.com/shockbytes/dante/internal/config"
	"github.com/shockbytes/dante/internal/database"
	"github.com/shockbytes/dante/internal/database/books"
	"github.com/shockbytes/dante/internal/database/settings"
	"github.com/shockbytes/dante/internal/entities"
	"github.com/shockbytes/dante/internal/logging"
	"github.com/shockbytes/dante/internal/permissions"
	"github.com/shockbytes/dante/internal/tracking"
)

// App bundles the wired-up services a command needs.
type App struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Database     *database.Database
	Books        *books.Repository
	Settings     *settings.Repository
	Orchestrator *backup.Orchestrator
	Reconciler   *backup.Reconciler
}

// NewApp opens the database, runs migrations, and wires the full backup
// engine over all four providers. dbPath overrides the configured path
// when non-empty.
func NewApp(ctx context.Context, dbPath string) (*App, error) {
	cfg := config.NewConfig()
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	logger := logging.New(cfg.Log.Level)

	db, err := database.NewDatabase(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	bookRepo := books.NewRepository(db.DB)
	settingsRepo := settings.NewRepository(db.DB)
	tokenStore := auth.NewTokenStore(db.DB)
	accounts := auth.NewStoredAccountProvider(tokenStore, entities.AccountSourceGoogle)
	tracker := tracking.NewLogTracker(logger)

	providers := []backup.Provider{
		local.New(cfg.Backup.BaseDir, cfg.Backup.Device, permissions.NewDirChecker(cfg.Backup.BaseDir), logger),
		drive.New(cfg.Drive.BaseURL, cfg.Backup.Device, accounts, logger),
		remote.New(cfg.Remote.BaseURL, cfg.Backup.Device, accounts, logger),
		csvprovider.New(cfg.CSV.ExportDir, cfg.Backup.Device, permissions.NewDirChecker(cfg.CSV.ExportDir), logger),
	}

	orchestrator := backup.NewOrchestrator(providers, settingsRepo, tracker, logger)
	if err := orchestrator.Initialize(ctx, false); err != nil {
		// Cloud providers stay disabled without credentials; commands on
		// the remaining providers still work.
		logger.Debug().Err(err).Msg("some backup providers are unavailable")
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		Database:     db,
		Books:        bookRepo,
		Settings:     settingsRepo,
		Orchestrator: orchestrator,
		Reconciler:   backup.NewReconciler(bookRepo, logger),
	}, nil
}

// Snapshot reads the whole library as one backup payload.
func (a *App) Snapshot() (backup.Content, error) {
	allBooks, err := a.Books.GetAllBooks()
	if err != nil {
		return backup.Content{}, fmt.Errorf("failed to read books: %w", err)
	}
	records, err := a.Books.GetAllPageRecords()
	if err != nil {
		return backup.Content{}, fmt.Errorf("failed to read page records: %w", err)
	}
	return backup.Content{Books: allBooks, Records: records}, nil
}

// FindEntry resolves a backup id to its listing entry.
func (a *App) FindEntry(ctx context.Context, id string) (backup.Metadata, error) {
	entries, err := a.Orchestrator.Backups(ctx)
	if err != nil {
		return backup.Metadata{}, err
	}
	for _, e := range entries {
		if e.Entry.ID == id {
			return e.Entry, nil
		}
	}
	return backup.Metadata{}, fmt.Errorf("no backup with id %q", id)
}

// Close shuts down the backup engine and the database.
func (a *App) Close(ctx context.Context) error {
	if err := a.Orchestrator.Close(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("backup engine shutdown reported errors")
	}
	return a.Database.Close()
}
