package backup

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shockbytes/dante/internal/database/books"
	"github.com/shockbytes/dante/internal/entities"
)

func setupReconcilerTest(t *testing.T) (*Reconciler, *books.Repository, func()) {
	dbPath := "./test_reconciler_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Book{}, &entities.BookLabel{}, &entities.PageRecord{}))

	repo := books.NewRepository(db)
	rec := NewReconciler(repo, zerolog.Nop())

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}
	return rec, repo, cleanup
}

func restorePayload() Content {
	// Ids are deliberately far from what a fresh store would mint.
	return Content{
		Books: []entities.Book{
			{ID: 101, Title: "Dune", Author: "Frank Herbert", State: entities.ReadingStateRead, PageCount: 412},
			{ID: 205, Title: "Piranesi", Author: "Susanna Clarke", State: entities.ReadingStateReading, PageCount: 245, CurrentPage: 120,
				Labels: []entities.BookLabel{{ID: 9, BookID: 205, Title: "fantasy", HexColor: "#aabbcc"}}},
		},
		Records: []entities.PageRecord{
			{ID: 77, BookID: 205, FromPage: 0, ToPage: 60, StartedAt: time.Now().Add(-48 * time.Hour), FinishedAt: time.Now().Add(-24 * time.Hour)},
			{ID: 78, BookID: 205, FromPage: 60, ToPage: 120, StartedAt: time.Now().Add(-24 * time.Hour), FinishedAt: time.Now()},
		},
	}
}

func TestReconciler_OverwriteReplacesLibrary(t *testing.T) {
	rec, repo, cleanup := setupReconcilerTest(t)
	defer cleanup()

	existing := entities.Book{Title: "Old Book", Author: "Someone"}
	require.NoError(t, repo.CreateBook(&existing))

	require.NoError(t, rec.Apply(context.Background(), restorePayload(), RestoreStrategyOverwrite))

	all, err := repo.GetAllBooks()
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, b := range all {
		assert.NotEqual(t, "Old Book", b.Title)
	}
}

func TestReconciler_RemapsRecordsToFreshIDs(t *testing.T) {
	rec, repo, cleanup := setupReconcilerTest(t)
	defer cleanup()

	require.NoError(t, rec.Apply(context.Background(), restorePayload(), RestoreStrategyOverwrite))

	piranesi, err := repo.GetBookByTitleAndAuthor("Piranesi", "Susanna Clarke")
	require.NoError(t, err)
	assert.NotEqual(t, uint(205), piranesi.ID)

	records, err := repo.GetPageRecordsForBook(piranesi.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].FromPage)
	assert.Equal(t, 60, records[0].ToPage)

	// No record may still point at the payload's book id.
	orphans, err := repo.GetPageRecordsForBook(205)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestReconciler_MergeSkipsExistingBooks(t *testing.T) {
	rec, repo, cleanup := setupReconcilerTest(t)
	defer cleanup()

	existing := entities.Book{Title: "Dune", Author: "Frank Herbert", Rating: 5}
	require.NoError(t, repo.CreateBook(&existing))

	require.NoError(t, rec.Apply(context.Background(), restorePayload(), RestoreStrategyMerge))

	all, err := repo.GetAllBooks()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// The existing row survived untouched.
	dune, err := repo.GetBookByTitleAndAuthor("Dune", "Frank Herbert")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, dune.ID)
	assert.Equal(t, 5, dune.Rating)
}

func TestReconciler_MergeAttachesRecordsToExistingBook(t *testing.T) {
	rec, repo, cleanup := setupReconcilerTest(t)
	defer cleanup()

	existing := entities.Book{Title: "Piranesi", Author: "Susanna Clarke"}
	require.NoError(t, repo.CreateBook(&existing))

	require.NoError(t, rec.Apply(context.Background(), restorePayload(), RestoreStrategyMerge))

	records, err := repo.GetPageRecordsForBook(existing.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReconciler_PayloadDuplicatesCollapse(t *testing.T) {
	rec, repo, cleanup := setupReconcilerTest(t)
	defer cleanup()

	content := Content{
		Books: []entities.Book{
			{ID: 1, Title: "Dune", Author: "Frank Herbert"},
			{ID: 2, Title: "Dune", Author: "Frank Herbert"},
		},
		Records: []entities.PageRecord{
			{BookID: 1, FromPage: 0, ToPage: 10},
			{BookID: 2, FromPage: 10, ToPage: 20},
		},
	}
	require.NoError(t, rec.Apply(context.Background(), content, RestoreStrategyOverwrite))

	all, err := repo.GetAllBooks()
	require.NoError(t, err)
	require.Len(t, all, 1)

	// Both records resolved onto the single surviving book.
	records, err := repo.GetPageRecordsForBook(all[0].ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReconciler_DanglingRecordHaltsRestore(t *testing.T) {
	rec, repo, cleanup := setupReconcilerTest(t)
	defer cleanup()

	content := restorePayload()
	content.Records = append(content.Records, entities.PageRecord{BookID: 999, FromPage: 0, ToPage: 5})

	err := rec.Apply(context.Background(), content, RestoreStrategyOverwrite)
	require.Error(t, err)

	var mapping *IdentityMappingError
	require.ErrorAs(t, err, &mapping)
	assert.Equal(t, uint(999), mapping.BookID)

	// All-or-nothing: no record made it into the store.
	records, err := repo.GetAllPageRecords()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReconciler_UnknownStrategy(t *testing.T) {
	rec, _, cleanup := setupReconcilerTest(t)
	defer cleanup()

	err := rec.Apply(context.Background(), Content{}, RestoreStrategy("upsert"))
	assert.Error(t, err)
}
