// Package books provides database operations for the library and its
// reading-progress records.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	all, err := repo.GetAllBooks()
package books

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shockbytes/dante/internal/entities"
)

// Repository handles all book and page-record database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetBookByID retrieves a book by its ID with its labels.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Labels").First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBookByTitleAndAuthor retrieves a book by title and author.
func (r *Repository) GetBookByTitleAndAuthor(title, author string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Labels").Where("title = ? AND author = ?", title, author).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetAllBooks retrieves all books with their labels.
func (r *Repository) GetAllBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Preload("Labels").Order("title ASC").Find(&books).Error
	return books, err
}

// CreateBook inserts a book; the store mints a fresh ID onto book.ID.
func (r *Repository) CreateBook(book *entities.Book) error {
	return r.db.Create(book).Error
}

// UpdateBook persists all fields of an existing book.
func (r *Repository) UpdateBook(book *entities.Book) error {
	return r.db.Save(book).Error
}

// DeleteBook removes a book together with its labels and page records.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&entities.BookLabel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", id).Delete(&entities.PageRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.Book{}, id).Error
	})
}

// DeleteAllBooks clears the library, including labels and page records.
func (r *Repository) DeleteAllBooks() error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entities.BookLabel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&entities.PageRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&entities.Book{}).Error
	})
}

// CountBooks returns the number of books in the library.
func (r *Repository) CountBooks() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Count(&count).Error
	return count, err
}

// GetAllPageRecords retrieves every page record, oldest first.
func (r *Repository) GetAllPageRecords() ([]entities.PageRecord, error) {
	var records []entities.PageRecord
	err := r.db.Order("started_at ASC, id ASC").Find(&records).Error
	return records, err
}

// GetPageRecordsForBook retrieves the page records of one book, oldest first.
func (r *Repository) GetPageRecordsForBook(bookID uint) ([]entities.PageRecord, error) {
	var records []entities.PageRecord
	err := r.db.Where("book_id = ?", bookID).Order("started_at ASC, id ASC").Find(&records).Error
	return records, err
}

// CreatePageRecord inserts a single page record.
func (r *Repository) CreatePageRecord(record *entities.PageRecord) error {
	return r.db.Create(record).Error
}

// CreatePageRecords inserts a batch of page records in one transaction.
// Records whose (book, span) already exists are silently kept as-is, so
// merge restores can replay overlapping history without conflicting.
func (r *Repository) CreatePageRecords(records []entities.PageRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
}

// DeleteAllPageRecords clears all reading-progress history.
func (r *Repository) DeleteAllPageRecords() error {
	return r.db.Where("1 = 1").Delete(&entities.PageRecord{}).Error
}
