package entities

import (
	"strings"
	"time"
)

type ReadingState string

const (
	ReadingStateReadLater ReadingState = "read_later"
	ReadingStateReading   ReadingState = "reading"
	ReadingStateRead      ReadingState = "read"
)

type Book struct {
	ID       uint         `gorm:"primaryKey" json:"id"`
	Title    string       `gorm:"index;size:512" json:"title"`
	SubTitle string       `gorm:"size:512" json:"subtitle,omitempty"`
	Author   string       `gorm:"index;size:256" json:"author"`
	State    ReadingState `gorm:"size:20;default:'read_later'" json:"state"`

	PageCount   int `json:"page_count"`
	CurrentPage int `json:"current_page"`
	Rating      int `json:"rating,omitempty"` // 1-5, 0 = unrated

	ISBN             string `gorm:"size:20" json:"isbn,omitempty"`
	Language         string `gorm:"size:10" json:"language,omitempty"`
	ThumbnailAddress string `gorm:"size:2048" json:"thumbnail_address,omitempty"`
	GoogleBooksLink  string `gorm:"size:2048" json:"google_books_link,omitempty"`
	Summary          string `gorm:"type:text" json:"summary,omitempty"`
	Notes            string `gorm:"type:text" json:"notes,omitempty"`

	WishlistDate *time.Time `json:"wishlist_date,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`

	Labels []BookLabel `gorm:"foreignKey:BookID" json:"labels,omitempty"`

	// Deprecated: comma-joined label titles from the pre-label-table schema.
	// Kept so the label migration can derive BookLabel rows from it.
	LabelList string `gorm:"column:label_list;size:1024" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// LegacyLabels splits the deprecated comma-joined label column.
func (b *Book) LegacyLabels() []string {
	if b.LabelList == "" {
		return nil
	}
	parts := strings.Split(b.LabelList, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			labels = append(labels, p)
		}
	}
	return labels
}

// BookLabel is a user-defined label attached to a book.
type BookLabel struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	BookID   uint   `gorm:"index" json:"book_id"`
	Title    string `gorm:"size:100" json:"title"`
	HexColor string `gorm:"size:10" json:"hex_color,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (BookLabel) TableName() string {
	return "book_labels"
}

// PageRecord represents a contiguous page range read between two instants.
// BookID must reference an existing book; orphaned records are meaningless.
type PageRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BookID     uint      `gorm:"index;uniqueIndex:idx_page_records_span" json:"book_id"`
	FromPage   int       `gorm:"uniqueIndex:idx_page_records_span" json:"from_page"`
	ToPage     int       `gorm:"uniqueIndex:idx_page_records_span" json:"to_page"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	CreatedAt time.Time `json:"created_at"`
}

func (PageRecord) TableName() string {
	return "page_records"
}

// Pages returns the number of pages covered by the record.
func (r *PageRecord) Pages() int {
	return r.ToPage - r.FromPage
}
