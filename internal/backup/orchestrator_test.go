package backup

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shockbytes/dante/internal/database/settings"
	"github.com/shockbytes/dante/internal/entities"
	"github.com/shockbytes/dante/internal/tracking"
)

// fakeProvider is a scriptable in-memory backend.
type fakeProvider struct {
	tag         StorageProvider
	initErr     error
	entriesErr  error
	enabled     bool
	entries     []MetadataState
	backups     []Content
	removed     []string
	removedAll  bool
	teardownRun bool
}

func (f *fakeProvider) Tag() StorageProvider { return f.tag }

func (f *fakeProvider) Initialize(ctx context.Context) error {
	if f.initErr != nil {
		f.enabled = false
		return f.initErr
	}
	f.enabled = true
	return nil
}

func (f *fakeProvider) Enabled() bool { return f.enabled }

func (f *fakeProvider) Backup(ctx context.Context, content Content) error {
	f.backups = append(f.backups, content)
	return nil
}

func (f *fakeProvider) BackupEntries(ctx context.Context) ([]MetadataState, error) {
	if f.entriesErr != nil {
		return nil, f.entriesErr
	}
	return f.entries, nil
}

func (f *fakeProvider) Content(ctx context.Context, entry Metadata) (Content, error) {
	if len(f.backups) == 0 {
		return Content{}, &CorruptPayloadError{Reason: "no backup stored"}
	}
	return f.backups[len(f.backups)-1], nil
}

func (f *fakeProvider) RemoveEntry(ctx context.Context, entry Metadata) error {
	f.removed = append(f.removed, entry.ID)
	return nil
}

func (f *fakeProvider) RemoveAllEntries(ctx context.Context) error {
	f.removedAll = true
	return nil
}

func (f *fakeProvider) Teardown(ctx context.Context) error {
	f.teardownRun = true
	f.enabled = false
	return nil
}

func setupOrchestratorTest(t *testing.T, providers ...Provider) (*Orchestrator, *settings.Repository, func()) {
	dbPath := "./test_orchestrator_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Setting{}))

	repo := settings.NewRepository(db)
	orch := NewOrchestrator(providers, repo, tracking.NoopTracker{}, zerolog.Nop())

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}
	return orch, repo, cleanup
}

func entryAt(tag StorageProvider, id string, at time.Time) MetadataState {
	return MetadataState{
		Entry: Metadata{
			ID:              id,
			FileName:        id,
			StorageProvider: tag,
			Timestamp:       at,
		},
		Active: true,
	}
}

func TestOrchestrator_InitializePartialFailure(t *testing.T) {
	healthy := &fakeProvider{tag: StorageProviderLocal}
	broken := &fakeProvider{tag: StorageProviderDrive, initErr: ErrUnauthenticated}

	orch, _, cleanup := setupOrchestratorTest(t, healthy, broken)
	defer cleanup()

	err := orch.Initialize(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// The healthy provider came up despite its sibling failing.
	assert.True(t, healthy.Enabled())
	assert.False(t, broken.Enabled())
	assert.Equal(t, []StorageProvider{StorageProviderLocal}, orch.ActiveProviders())
}

func TestOrchestrator_InitializeIsIdempotent(t *testing.T) {
	broken := &fakeProvider{tag: StorageProviderDrive, initErr: ErrUnauthenticated}

	orch, _, cleanup := setupOrchestratorTest(t, broken)
	defer cleanup()

	require.Error(t, orch.Initialize(context.Background(), false))

	// Without forceReload the second call does not retry the failure.
	broken.initErr = nil
	require.NoError(t, orch.Initialize(context.Background(), false))
	assert.False(t, broken.Enabled())

	// forceReload retries.
	require.NoError(t, orch.Initialize(context.Background(), true))
	assert.True(t, broken.Enabled())
}

func TestOrchestrator_BackupsAggregatedNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	local := &fakeProvider{tag: StorageProviderLocal, entries: []MetadataState{
		entryAt(StorageProviderLocal, "a", base),
		entryAt(StorageProviderLocal, "b", base.Add(2*time.Hour)),
	}}
	drive := &fakeProvider{tag: StorageProviderDrive, entries: []MetadataState{
		entryAt(StorageProviderDrive, "c", base.Add(time.Hour)),
	}}

	orch, _, cleanup := setupOrchestratorTest(t, local, drive)
	defer cleanup()
	require.NoError(t, orch.Initialize(context.Background(), false))

	entries, err := orch.Backups(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "b", entries[0].Entry.ID)
	assert.Equal(t, "c", entries[1].Entry.ID)
	assert.Equal(t, "a", entries[2].Entry.ID)
}

func TestOrchestrator_BackupsToleratesFailingProvider(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	local := &fakeProvider{tag: StorageProviderLocal, entries: []MetadataState{
		entryAt(StorageProviderLocal, "a", base),
	}}
	drive := &fakeProvider{tag: StorageProviderDrive, entriesErr: errors.New("network down")}

	orch, _, cleanup := setupOrchestratorTest(t, local, drive)
	defer cleanup()
	require.NoError(t, orch.Initialize(context.Background(), false))

	entries, err := orch.Backups(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Entry.ID)
}

func TestOrchestrator_BackupRoutesAndRecordsBookkeeping(t *testing.T) {
	local := &fakeProvider{tag: StorageProviderLocal}
	drive := &fakeProvider{tag: StorageProviderDrive}

	orch, repo, cleanup := setupOrchestratorTest(t, local, drive)
	defer cleanup()
	require.NoError(t, orch.Initialize(context.Background(), false))

	content := Content{Books: []entities.Book{{Title: "Dune", Author: "Frank Herbert"}}}
	require.NoError(t, orch.Backup(context.Background(), StorageProviderDrive, content))

	assert.Empty(t, local.backups)
	require.Len(t, drive.backups, 1)

	at, provider, ok := repo.LastBackup()
	require.True(t, ok)
	assert.Equal(t, string(StorageProviderDrive), provider)
	assert.WithinDuration(t, time.Now(), at, 5*time.Second)
}

func TestOrchestrator_BackupToDisabledProvider(t *testing.T) {
	drive := &fakeProvider{tag: StorageProviderDrive, initErr: ErrUnauthenticated}

	orch, _, cleanup := setupOrchestratorTest(t, drive)
	defer cleanup()
	_ = orch.Initialize(context.Background(), false)

	err := orch.Backup(context.Background(), StorageProviderDrive, Content{})
	require.Error(t, err)

	var unavailable *ProviderUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestOrchestrator_BackupToUnknownProvider(t *testing.T) {
	orch, _, cleanup := setupOrchestratorTest(t, &fakeProvider{tag: StorageProviderLocal})
	defer cleanup()

	err := orch.Backup(context.Background(), StorageProvider("floppy"), Content{})
	assert.Error(t, err)
}

func TestOrchestrator_RemoveEntryRoutesByTag(t *testing.T) {
	local := &fakeProvider{tag: StorageProviderLocal}
	drive := &fakeProvider{tag: StorageProviderDrive}

	orch, _, cleanup := setupOrchestratorTest(t, local, drive)
	defer cleanup()
	require.NoError(t, orch.Initialize(context.Background(), false))

	entry := Metadata{ID: "x", StorageProvider: StorageProviderLocal}
	require.NoError(t, orch.RemoveEntry(context.Background(), entry))

	assert.Equal(t, []string{"x"}, local.removed)
	assert.Empty(t, drive.removed)

	require.NoError(t, orch.RemoveAllEntries(context.Background(), StorageProviderDrive))
	assert.True(t, drive.removedAll)
	assert.False(t, local.removedAll)
}

func TestOrchestrator_CloseTearsDownAndRejectsReinit(t *testing.T) {
	local := &fakeProvider{tag: StorageProviderLocal}
	drive := &fakeProvider{tag: StorageProviderDrive}

	orch, _, cleanup := setupOrchestratorTest(t, local, drive)
	defer cleanup()
	require.NoError(t, orch.Initialize(context.Background(), false))

	require.NoError(t, orch.Close(context.Background()))
	assert.True(t, local.teardownRun)
	assert.True(t, drive.teardownRun)

	assert.Error(t, orch.Initialize(context.Background(), true))
	assert.NoError(t, orch.Close(context.Background()))
}
