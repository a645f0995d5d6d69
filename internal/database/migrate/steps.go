package migrate

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pressly/goose/v3"
)

// Migrations returns the full ordered step list known to this build.
// Versions are append-only: released steps are never edited or reordered,
// since stores in the field carry any of the intermediate versions.
func Migrations() []*goose.Migration {
	return []*goose.Migration{
		goose.NewGoMigration(1, &goose.GoFunc{RunTx: createInitialSchema}, nil),
		goose.NewGoMigration(2, &goose.GoFunc{RunTx: addReadingProgressColumns}, nil),
		goose.NewGoMigration(3, &goose.GoFunc{RunTx: renameBookEntityTable}, nil),
		goose.NewGoMigration(4, &goose.GoFunc{RunTx: extractBookLabels}, nil),
		goose.NewGoMigration(5, &goose.GoFunc{RunTx: createPageRecords}, nil),
		goose.NewGoMigration(6, &goose.GoFunc{RunTx: enforceUniquePageRecordSpans}, nil),
	}
}

// Step 1: the original schema. Books lived in a table named book_entity
// with labels as a flat comma-joined string column.
func createInitialSchema(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE book_entity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			sub_title TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT 'read_later',
			rating INTEGER NOT NULL DEFAULT 0,
			isbn TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT '',
			thumbnail_address TEXT NOT NULL DEFAULT '',
			google_books_link TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			wishlist_date DATETIME,
			start_date DATETIME,
			end_date DATETIME,
			label_list TEXT NOT NULL DEFAULT '',
			created_at DATETIME,
			updated_at DATETIME
		);

		CREATE INDEX idx_book_entity_title ON book_entity(title);
		CREATE INDEX idx_book_entity_author ON book_entity(author);

		CREATE TABLE settings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL,
			value TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);
		CREATE UNIQUE INDEX idx_settings_key ON settings(key);

		CREATE TABLE auth_tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at DATETIME,
			updated_at DATETIME,
			source VARCHAR(50) NOT NULL,
			account_id VARCHAR(255) NOT NULL,
			display_name VARCHAR(255),
			access_token TEXT NOT NULL,
			token_type VARCHAR(50) DEFAULT 'Bearer',
			expires_at DATETIME,
			last_used_at DATETIME
		);
		CREATE UNIQUE INDEX idx_source_account ON auth_tokens(source, account_id);
	`)
	return err
}

// Step 2: reading progress landed as two columns with defaults.
func addReadingProgressColumns(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		ALTER TABLE book_entity ADD COLUMN current_page INTEGER NOT NULL DEFAULT 0;
		ALTER TABLE book_entity ADD COLUMN page_count INTEGER NOT NULL DEFAULT 0;
	`)
	return err
}

// Step 3: the collection rename.
func renameBookEntityTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `ALTER TABLE book_entity RENAME TO books;`)
	return err
}

// Step 4: labels graduate from a comma-joined string column to a typed
// collection. Existing values are split and backfilled; the legacy column
// stays in place so the step needs no table rebuild.
func extractBookLabels(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE book_labels (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			book_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			hex_color TEXT NOT NULL DEFAULT '',
			created_at DATETIME,
			FOREIGN KEY (book_id) REFERENCES books(id)
		);
		CREATE INDEX idx_book_labels_book_id ON book_labels(book_id);
	`); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, label_list FROM books WHERE label_list != ''`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type labelRow struct {
		bookID uint
		title  string
	}
	var backfill []labelRow
	for rows.Next() {
		var bookID uint
		var labelList string
		if err := rows.Scan(&bookID, &labelList); err != nil {
			return err
		}
		for _, title := range strings.Split(labelList, ",") {
			if title = strings.TrimSpace(title); title != "" {
				backfill = append(backfill, labelRow{bookID: bookID, title: title})
			}
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, l := range backfill {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO book_labels (book_id, title, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
			l.bookID, l.title,
		); err != nil {
			return err
		}
	}
	return nil
}

// Step 5: page records arrive with a book_id foreign key. Each book with
// progress gets one backfilled record covering pages read so far, computed
// from its existing current_page and timestamps.
func createPageRecords(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE page_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			book_id INTEGER NOT NULL,
			from_page INTEGER NOT NULL DEFAULT 0,
			to_page INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME,
			finished_at DATETIME,
			created_at DATETIME,
			FOREIGN KEY (book_id) REFERENCES books(id)
		);
		CREATE INDEX idx_page_records_book_id ON page_records(book_id);
	`); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO page_records (book_id, from_page, to_page, started_at, finished_at, created_at)
		SELECT id, 0, current_page,
			COALESCE(start_date, created_at),
			COALESCE(end_date, updated_at),
			CURRENT_TIMESTAMP
		FROM books
		WHERE current_page > 0;
	`)
	return err
}

// Step 6: the (book_id, from_page, to_page) span becomes a unique key.
// Duplicate spans from earlier backfills are collapsed first so the index
// creation cannot fail on field data.
func enforceUniquePageRecordSpans(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM page_records
		WHERE id NOT IN (
			SELECT MIN(id) FROM page_records GROUP BY book_id, from_page, to_page
		);
		CREATE UNIQUE INDEX idx_page_records_span ON page_records(book_id, from_page, to_page);
	`)
	return err
}
