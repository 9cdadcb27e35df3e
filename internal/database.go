package internal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const stateSchema = `CREATE TABLE IF NOT EXISTS browserState (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// OpenDatabase opens (creating if needed) the SQLite state database.
// path may be ":memory:".
func OpenDatabase(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &StorageError{Op: "open", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := db.Exec(stateSchema); err != nil {
		db.Close()
		return nil, &StorageError{Op: "migrate", Err: err}
	}

	return db, nil
}

// QueryState returns the raw value stored under key
func QueryState(db *sql.DB, key string) (string, bool, error) {
	var value sql.NullString
	err := db.QueryRow("SELECT value FROM browserState WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query failed: %w", err)
	}
	if !value.Valid {
		return "", false, nil
	}
	return value.String, true, nil
}

// ReplaceState replaces the whole record under key inside a transaction
func ReplaceState(db *sql.DB, key, value string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin failed: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO browserState (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("upsert failed: %w", err)
	}
	return tx.Commit()
}

// ListStateKeys lists every stored key with the size of its value
func ListStateKeys(db *sql.DB) ([]KeyValuePair, error) {
	rows, err := db.Query("SELECT key, length(value) FROM browserState ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var pairs []KeyValuePair
	for rows.Next() {
		var pair KeyValuePair
		var size int
		if err := rows.Scan(&pair.Key, &size); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		pair.Value = fmt.Sprintf("%d bytes", size)
		pairs = append(pairs, pair)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return pairs, nil
}

// KeyValuePair represents a key-value pair from browserState
type KeyValuePair struct {
	Key   string
	Value string
}
