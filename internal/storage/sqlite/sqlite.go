// Package sqlite stores rows in a local SQLite book: a tabs table holding
// tab titles in document order and a rows table holding appended rows.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"voice-ledger-service/internal/storage"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tabs (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	title    TEXT NOT NULL UNIQUE,
	position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS rows (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	tab_id      INTEGER NOT NULL REFERENCES tabs(id),
	appended_at INTEGER NOT NULL,
	cells       TEXT NOT NULL
);
`

// Book is a SQLite-backed book. It implements storage.Opener and storage.Book.
type Book struct {
	path string
	tabs []string

	mu sync.Mutex
	db *sql.DB
}

// New creates a book at path. The given tabs are created, in order, the first
// time the book is opened.
func New(path string, tabs ...string) (*Book, error) {
	if path == "" {
		return nil, errors.New("sqlite: path must not be empty")
	}
	return &Book{path: path, tabs: tabs}, nil
}

// Open implements storage.Opener.
func (b *Book) Open(ctx context.Context) (storage.Book, error) {
	if _, err := b.conn(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Book) conn(ctx context.Context) (*sql.DB, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db != nil {
		return b.db, nil
	}

	db, err := sql.Open("sqlite3", b.path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", b.path, err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create tables: %w", err)
	}
	for i, t := range b.tabs {
		if _, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO tabs (title, position) VALUES (?, ?)`, t, i); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: create tab %q: %w", t, err)
		}
	}

	b.db = db
	log.Info().Str("path", b.path).Strs("tabs", b.tabs).Msg("SQLite book opened")
	return db, nil
}

// Tabs implements storage.Book.
func (b *Book) Tabs(ctx context.Context) ([]string, error) {
	db, err := b.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT title FROM tabs ORDER BY position, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// AppendRow implements storage.Book.
func (b *Book) AppendRow(ctx context.Context, tab string, values []string) error {
	db, err := b.conn(ctx)
	if err != nil {
		return err
	}
	cells, err := json.Marshal(values)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO rows (tab_id, appended_at, cells)
		 SELECT id, ?, ? FROM tabs WHERE title = ?`,
		time.Now().UnixMilli(), string(cells), tab)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: no tab %q", tab)
	}
	return nil
}

// Rows returns the rows of tab in append order.
func (b *Book) Rows(ctx context.Context, tab string) ([][]string, error) {
	db, err := b.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT r.cells FROM rows r JOIN tabs t ON t.id = r.tab_id
		 WHERE t.title = ? ORDER BY r.id`, tab)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, err
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

// Close closes the database if it was opened.
func (b *Book) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
