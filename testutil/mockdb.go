package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

const createStateTableSQL = `
	CREATE TABLE IF NOT EXISTS browserState (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`

// CreateInMemoryDB creates an in-memory SQLite database for testing
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	// every pooled connection would otherwise get its own empty database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createStateTableSQL); err != nil {
		db.Close()
		t.Fatalf("Failed to create browserState table: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// CreateTestDB creates a test database holding a two-tab snapshot,
// two history items and one site rule
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)

	records := []struct {
		key   string
		value string
	}{
		{
			key:   "tabs",
			value: `[{"address":"https://a.test/","title":"A"},{"address":"","title":"New Tab"}]`,
		},
		{
			key: "history",
			value: `[{"id":"h1","title":"Go","address":"https://go.dev/","timestamp":"2026-10-01T10:00:00Z"},` +
				`{"id":"h2","title":"Example Domain","address":"https://example.com/","timestamp":"2026-10-02T10:00:00Z"}]`,
		},
		{
			key:   "privacySettings",
			value: `{"javaScriptEnabled":true,"thirdPartyCookiesAllowed":false,"historyRetentionDays":-1,"siteRules":[{"id":"r1","pattern":"*.example.com/*","javaScriptOverride":false}]}`,
		},
	}

	stmt, err := db.Prepare("INSERT INTO browserState (key, value) VALUES (?, ?)")
	if err != nil {
		t.Fatalf("Failed to prepare insert statement: %v", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.key, r.value); err != nil {
			t.Fatalf("Failed to insert %s: %v", r.key, err)
		}
	}

	return db
}

// InsertState stores a raw value under key, replacing any previous value
func InsertState(t *testing.T, db *sql.DB, key, value string) {
	t.Helper()
	insertSQL := "INSERT OR REPLACE INTO browserState (key, value) VALUES (?, ?)"
	if _, err := db.Exec(insertSQL, key, value); err != nil {
		t.Fatalf("Failed to insert %s: %v", key, err)
	}
}
