package registry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists the destination set in a single-table SQLite database.
//
// It is a drop-in alternative to FileStore for deployments that already ship
// a SQLite volume; the schema is one chat_id per row.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) a SQLite-backed store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS destinations (
			chat_id TEXT PRIMARY KEY
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create destinations table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads all registered destinations.
func (s *SQLiteStore) Load(ctx context.Context) ([]DestinationID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id FROM destinations ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query destinations: %v", ErrCorrupt, err)
	}
	defer rows.Close()

	var destinations []DestinationID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan destination: %v", ErrCorrupt, err)
		}
		destinations = append(destinations, DestinationID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate destinations: %v", ErrCorrupt, err)
	}

	return destinations, nil
}

// Save replaces the stored set inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, destinations []DestinationID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM destinations`); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear destinations: %w", err)
	}

	for _, id := range destinations {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO destinations (chat_id) VALUES (?)`, string(id)); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert destination %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit destinations: %w", err)
	}

	return nil
}
