// Package scheduler runs automatic backups on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/shockbytes/dante/internal/backup"
	"github.com/shockbytes/dante/internal/config"
	"github.com/shockbytes/dante/internal/database/books"
	"github.com/shockbytes/dante/internal/database/settings"
)

// BackupScheduler manages periodic snapshots to the local file provider.
type BackupScheduler struct {
	orchestrator *backup.Orchestrator
	books        *books.Repository
	settings     *settings.Repository
	envConfig    config.ScheduledBackup
	logger       zerolog.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewBackupScheduler creates a new scheduler instance.
func NewBackupScheduler(orchestrator *backup.Orchestrator, bookRepo *books.Repository, settingsRepo *settings.Repository, envConfig config.ScheduledBackup, logger zerolog.Logger) *BackupScheduler {
	return &BackupScheduler{
		orchestrator: orchestrator,
		books:        bookRepo,
		settings:     settingsRepo,
		envConfig:    envConfig,
		logger:       logger.With().Str("component", "scheduler").Logger(),
		cron:         cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if scheduled backups are enabled.
func (s *BackupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	cfg := s.settings.GetScheduledBackupConfig(s.envConfig)
	if !cfg.Enabled {
		s.logger.Info().Msg("scheduled backups disabled")
		return nil
	}

	if err := ValidateCronSchedule(cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", cfg.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(cfg.Schedule, func() {
		s.runBackup(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule backup job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := NextRunTime(cfg.Schedule)
	s.logger.Info().
		Str("schedule", cfg.Schedule).
		Str("description", CronDescription(cfg.Schedule)).
		Interface("next_run", nextRun).
		Msg("scheduled backups started")

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job to finish.
func (s *BackupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	s.logger.Info().Msg("scheduled backups stopped")
}

// Reschedule restarts the scheduler with the current settings. Call after
// a settings change.
func (s *BackupScheduler) Reschedule() error {
	s.mu.Lock()
	wasRunning := s.isRunning
	s.mu.Unlock()

	if wasRunning {
		s.Stop()
	}
	return s.Start(context.Background())
}

// RunNow triggers an immediate backup outside the schedule.
func (s *BackupScheduler) RunNow() {
	go s.runBackup(context.Background())
}

// IsRunning returns whether the scheduler is active.
func (s *BackupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the next scheduled backup will occur.
func (s *BackupScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runBackup snapshots the library to the local provider and records the
// outcome in the settings store.
func (s *BackupScheduler) runBackup(ctx context.Context) {
	cfg := s.settings.GetScheduledBackupConfig(s.envConfig)
	if !cfg.Enabled {
		s.logger.Debug().Msg("scheduled backup skipped (disabled)")
		return
	}

	start := time.Now()
	content, err := snapshot(s.books)
	if err != nil {
		s.fail(fmt.Sprintf("failed to snapshot library: %v", err))
		return
	}
	if len(content.Books) == 0 {
		s.logger.Info().Msg("scheduled backup skipped (empty library)")
		_ = s.settings.SetScheduledBackupStatus("success", "No books to back up")
		return
	}

	if err := s.orchestrator.Backup(ctx, backup.StorageProviderLocal, content); err != nil {
		s.fail(fmt.Sprintf("backup failed: %v", err))
		return
	}

	msg := fmt.Sprintf("Backed up %d books, %d page records in %v",
		len(content.Books), len(content.Records), time.Since(start).Round(time.Millisecond))
	s.logger.Info().Msg(msg)
	_ = s.settings.SetScheduledBackupStatus("success", msg)
}

func (s *BackupScheduler) fail(msg string) {
	s.logger.Error().Msg(msg)
	_ = s.settings.SetScheduledBackupStatus("failed", msg)
}

// snapshot reads the whole library as one backup payload.
func snapshot(repo *books.Repository) (backup.Content, error) {
	allBooks, err := repo.GetAllBooks()
	if err != nil {
		return backup.Content{}, err
	}
	records, err := repo.GetAllPageRecords()
	if err != nil {
		return backup.Content{}, err
	}
	return backup.Content{Books: allBooks, Records: records}, nil
}

// ValidateCronSchedule validates a five-field cron schedule string.
func ValidateCronSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	return err
}

// CronDescription returns a human-readable description of a cron schedule.
func CronDescription(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "0 */6 * * *":
		return "Every 6 hours"
	case "0 3 * * *":
		return "Daily at 03:00"
	case "0 0 * * *":
		return "Daily at midnight"
	case "0 0 * * 0":
		return "Weekly on Sunday at midnight"
	default:
		return "Custom schedule: " + schedule
	}
}

// NextRunTime calculates when a schedule fires next.
func NextRunTime(schedule string) (*time.Time, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(time.Now())
	return &next, nil
}
