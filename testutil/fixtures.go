package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateSQLiteFixture creates an on-disk state database holding records
func CreateSQLiteFixture(t *testing.T, dbPath string, records map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(createStateTableSQL); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	for key, value := range records {
		InsertState(t, db, key, value)
	}
}

// CreateProfileFixture creates a profile directory with a state database
// and a config file pointing at it, and returns the profile path
func CreateProfileFixture(t *testing.T, records map[string]string) string {
	t.Helper()
	dir := CreateTempDir(t)
	dbPath := filepath.Join(dir, "state.db")
	CreateSQLiteFixture(t, dbPath, records)
	WriteFile(t, dir, "config.yaml", []byte("databasePath: "+dbPath+"\ncacheDir: "+filepath.Join(dir, "cache")+"\n"))
	return dir
}
