package backup

import (
	"github.com/shockbytes/dante/internal/entities"
)

// Content is the full backup payload: the library plus its reading-progress
// records, captured as a single synchronous snapshot at backup time.
type Content struct {
	Books   []entities.Book       `json:"books"`
	Records []entities.PageRecord `json:"page_records"`
}
