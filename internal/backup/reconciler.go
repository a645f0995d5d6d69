package backup

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shockbytes/dante/internal/database/books"
	"github.com/shockbytes/dante/internal/entities"
)

// RestoreStrategy selects how a restored snapshot interacts with the
// current library.
type RestoreStrategy string

const (
	// RestoreStrategyMerge keeps the current library and adds only books
	// not already present by (title, author).
	RestoreStrategyMerge RestoreStrategy = "merge"
	// RestoreStrategyOverwrite clears the library before restoring.
	RestoreStrategyOverwrite RestoreStrategy = "overwrite"
)

// Reconciler applies backup content to the library. The store mints fresh
// ids on insertion, so book ids inside a backup payload are only meaningful
// relative to that payload; the reconciler rebuilds the old-id to new-id
// mapping and rewrites every page record through it.
type Reconciler struct {
	books  *books.Repository
	logger zerolog.Logger
}

func NewReconciler(repo *books.Repository, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		books:  repo,
		logger: logger.With().Str("component", "restore").Logger(),
	}
}

// Apply restores a snapshot under the given strategy. Books are written
// first; page records are remapped against the rebuilt identity mapping
// and only inserted once every record resolved, so a single dangling
// reference aborts with zero records written.
func (r *Reconciler) Apply(ctx context.Context, content Content, strategy RestoreStrategy) error {
	switch strategy {
	case RestoreStrategyMerge, RestoreStrategyOverwrite:
	default:
		return fmt.Errorf("unknown restore strategy %q", strategy)
	}

	if strategy == RestoreStrategyOverwrite {
		if err := r.books.DeleteAllBooks(); err != nil {
			return fmt.Errorf("failed to clear library: %w", err)
		}
		r.logger.Info().Msg("library cleared for overwrite restore")
	}

	idMap, inserted, err := r.restoreBooks(content.Books, strategy)
	if err != nil {
		return err
	}
	r.logger.Info().Int("inserted", inserted).Int("total", len(content.Books)).Msg("books restored")

	records, err := remapRecords(content.Records, idMap)
	if err != nil {
		return err
	}
	if err := r.books.CreatePageRecords(records); err != nil {
		return fmt.Errorf("failed to restore page records: %w", err)
	}
	r.logger.Info().Int("records", len(records)).Msg("page records restored")
	return nil
}

// restoreBooks writes the payload's books and returns the payload-id to
// store-id mapping. Under merge, a book whose (title, author) already
// exists in the library is not duplicated; its payload id maps onto the
// existing row. Duplicates within the payload itself collapse onto the
// first occurrence the same way.
func (r *Reconciler) restoreBooks(payload []entities.Book, strategy RestoreStrategy) (map[uint]uint, int, error) {
	idMap := make(map[uint]uint, len(payload))
	seen := make(map[[2]string]uint, len(payload))
	inserted := 0

	for _, book := range payload {
		key := [2]string{book.Title, book.Author}
		oldID := book.ID

		if newID, ok := seen[key]; ok {
			idMap[oldID] = newID
			continue
		}

		if strategy == RestoreStrategyMerge {
			if existing, err := r.books.GetBookByTitleAndAuthor(book.Title, book.Author); err == nil {
				idMap[oldID] = existing.ID
				seen[key] = existing.ID
				continue
			}
		}

		book.ID = 0
		for i := range book.Labels {
			book.Labels[i].ID = 0
			book.Labels[i].BookID = 0
		}
		if err := r.books.CreateBook(&book); err != nil {
			return nil, 0, fmt.Errorf("failed to restore book %q: %w", book.Title, err)
		}
		idMap[oldID] = book.ID
		seen[key] = book.ID
		inserted++
	}
	return idMap, inserted, nil
}

// remapRecords rewrites page-record book references through the identity
// mapping. It is all-or-nothing: a reference with no mapping yields an
// *IdentityMappingError before anything is handed to the store.
func remapRecords(records []entities.PageRecord, idMap map[uint]uint) ([]entities.PageRecord, error) {
	remapped := make([]entities.PageRecord, 0, len(records))
	for _, rec := range records {
		newID, ok := idMap[rec.BookID]
		if !ok {
			return nil, &IdentityMappingError{BookID: rec.BookID}
		}
		rec.ID = 0
		rec.BookID = newID
		remapped = append(remapped, rec)
	}
	return remapped, nil
}
