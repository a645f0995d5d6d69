// Package csv implements the spreadsheet export provider. It is a lossy
// backend: only books are written, page records and label colors are
// dropped, so it serves interchange with spreadsheet tools rather than
// full restores.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shockbytes/dante/internal/backup"
	"github.com/shockbytes/dante/internal/entities"
	"github.com/shockbytes/dante/internal/permissions"
)

const (
	nameAcronym = "sbd"
	nameType    = "csv"
	fileExt     = ".csv"
	mimeTypeCSV = "text/csv"
)

// header is the fixed column layout. Appending columns is safe; reordering
// or removing breaks parse-back of previously exported files.
var header = []string{
	"title", "subtitle", "author", "state", "page_count", "current_page",
	"rating", "isbn", "language", "summary", "notes", "labels",
	"wishlist_date", "start_date", "end_date",
}

// Provider is the CSV export backend.
type Provider struct {
	exportDir string
	device    string
	perms     permissions.Checker
	logger    zerolog.Logger

	mu      sync.RWMutex
	enabled bool
}

// New creates a CSV provider writing into exportDir.
func New(exportDir, device string, perms permissions.Checker, logger zerolog.Logger) *Provider {
	return &Provider{
		exportDir: exportDir,
		device:    device,
		perms:     perms,
		logger:    logger.With().Str("provider", string(backup.StorageProviderCSV)).Logger(),
	}
}

func (p *Provider) Tag() backup.StorageProvider {
	return backup.StorageProviderCSV
}

func (p *Provider) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.perms.VerifyPermissions(permissions.ScopeStorage) {
		p.enabled = false
		return backup.ErrPermissionDenied
	}
	if err := os.MkdirAll(p.exportDir, 0o755); err != nil {
		p.enabled = false
		return &backup.ConnectionError{Provider: p.Tag(), Err: err}
	}

	p.enabled = true
	return nil
}

func (p *Provider) Enabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enabled
}

func (p *Provider) Backup(ctx context.Context, content backup.Content) error {
	if !p.Enabled() {
		return &backup.ProviderUnavailableError{Provider: p.Tag()}
	}

	fileName := backup.FormatEntryName(nameAcronym, nameType, time.Now(), len(content.Books), p.device, fileExt)
	path := filepath.Join(p.exportDir, fileName)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, book := range content.Books {
		if err := w.Write(bookToRow(book)); err != nil {
			return fmt.Errorf("failed to write export row for %q: %w", book.Title, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush export file %s: %w", path, err)
	}
	return f.Close()
}

func (p *Provider) BackupEntries(ctx context.Context) ([]backup.MetadataState, error) {
	files, err := p.exportFiles()
	if err != nil {
		return nil, err
	}

	entries := make([]backup.MetadataState, 0, len(files))
	for _, name := range files {
		meta, err := backup.ParseEntryName(name, nameAcronym, fileExt)
		if err != nil {
			p.logger.Debug().Str("file", name).Msg("skipping foreign csv file")
			continue
		}
		meta.StorageProvider = p.Tag()
		entries = append(entries, backup.MetadataState{Entry: meta, Active: p.Enabled()})
	}
	return entries, nil
}

// LocalFileEntries lists exports with their filesystem paths so they can be
// handed to spreadsheet tools.
func (p *Provider) LocalFileEntries(ctx context.Context) ([]backup.LocalFileMetadata, error) {
	states, err := p.BackupEntries(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]backup.LocalFileMetadata, 0, len(states))
	for _, s := range states {
		entries = append(entries, backup.LocalFileMetadata{
			Metadata:  s.Entry,
			LocalPath: filepath.Join(p.exportDir, s.Entry.ID),
			MIMEType:  mimeTypeCSV,
		})
	}
	return entries, nil
}

// Content parses an export back into books. Page records were never
// written, so restores from CSV yield books without reading progress.
func (p *Provider) Content(ctx context.Context, entry backup.Metadata) (backup.Content, error) {
	f, err := os.Open(filepath.Join(p.exportDir, entry.ID))
	if err != nil {
		return backup.Content{}, fmt.Errorf("failed to open export file %s: %w", entry.ID, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	first, err := r.Read()
	if err != nil {
		return backup.Content{}, &backup.CorruptPayloadError{Reason: "empty csv export", Err: err}
	}
	if first[0] != header[0] {
		return backup.Content{}, &backup.CorruptPayloadError{Reason: "csv export lacks header row"}
	}

	var books []entities.Book
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return backup.Content{}, &backup.CorruptPayloadError{Reason: "malformed csv row", Err: err}
		}
		book, err := rowToBook(row)
		if err != nil {
			return backup.Content{}, &backup.CorruptPayloadError{Reason: "malformed csv row", Err: err}
		}
		books = append(books, book)
	}
	return backup.Content{Books: books}, nil
}

func (p *Provider) RemoveEntry(ctx context.Context, entry backup.Metadata) error {
	if err := os.Remove(filepath.Join(p.exportDir, entry.ID)); err != nil {
		return fmt.Errorf("failed to remove export file %s: %w", entry.ID, err)
	}
	return nil
}

func (p *Provider) RemoveAllEntries(ctx context.Context) error {
	files, err := p.exportFiles()
	if err != nil {
		return err
	}
	for _, name := range files {
		if err := os.Remove(filepath.Join(p.exportDir, name)); err != nil {
			return fmt.Errorf("failed to remove export file %s: %w", name, err)
		}
	}
	return nil
}

func (p *Provider) Teardown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = false
	return nil
}

func (p *Provider) exportFiles() ([]string, error) {
	entries, err := os.ReadDir(p.exportDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list export directory %s: %w", p.exportDir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		files = append(files, e.Name())
	}
	return files, nil
}

func bookToRow(b entities.Book) []string {
	labels := make([]string, 0, len(b.Labels))
	for _, l := range b.Labels {
		labels = append(labels, l.Title)
	}
	return []string{
		b.Title,
		b.SubTitle,
		b.Author,
		string(b.State),
		strconv.Itoa(b.PageCount),
		strconv.Itoa(b.CurrentPage),
		strconv.Itoa(b.Rating),
		b.ISBN,
		b.Language,
		b.Summary,
		b.Notes,
		strings.Join(labels, ";"),
		formatDate(b.WishlistDate),
		formatDate(b.StartDate),
		formatDate(b.EndDate),
	}
}

func rowToBook(row []string) (entities.Book, error) {
	pageCount, err := strconv.Atoi(row[4])
	if err != nil {
		return entities.Book{}, fmt.Errorf("invalid page count %q: %w", row[4], err)
	}
	currentPage, err := strconv.Atoi(row[5])
	if err != nil {
		return entities.Book{}, fmt.Errorf("invalid current page %q: %w", row[5], err)
	}
	rating, err := strconv.Atoi(row[6])
	if err != nil {
		return entities.Book{}, fmt.Errorf("invalid rating %q: %w", row[6], err)
	}

	book := entities.Book{
		Title:       row[0],
		SubTitle:    row[1],
		Author:      row[2],
		State:       entities.ReadingState(row[3]),
		PageCount:   pageCount,
		CurrentPage: currentPage,
		Rating:      rating,
		ISBN:        row[7],
		Language:    row[8],
		Summary:     row[9],
		Notes:       row[10],
	}
	for _, title := range strings.Split(row[11], ";") {
		if title = strings.TrimSpace(title); title != "" {
			book.Labels = append(book.Labels, entities.BookLabel{Title: title})
		}
	}

	if book.WishlistDate, err = parseDate(row[12]); err != nil {
		return entities.Book{}, err
	}
	if book.StartDate, err = parseDate(row[13]); err != nil {
		return entities.Book{}, err
	}
	if book.EndDate, err = parseDate(row[14]); err != nil {
		return entities.Book{}, err
	}
	return book, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return &t, nil
}
