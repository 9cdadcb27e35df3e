package internal

import (
	"database/sql"
	"encoding/json"
)

// Keys of the independently persisted records
const (
	KeyTabs            = "tabs"
	KeyHistory         = "history"
	KeyPrivacySettings = "privacySettings"
	KeySidebarPinned   = "sidebarPinned"
)

// KVStore is durable key/value storage. Put replaces the whole value.
type KVStore interface {
	Get(key string) (string, bool, error)
	Put(key, value string) error
}

// Storage is a KVStore backed by the browserState table
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance
func NewStorage(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Get returns the value stored under key
func (s *Storage) Get(key string) (string, bool, error) {
	value, ok, err := QueryState(s.db, key)
	if err != nil {
		return "", false, &StorageError{Key: key, Op: "get", Err: err}
	}
	return value, ok, nil
}

// Put replaces the value stored under key
func (s *Storage) Put(key, value string) error {
	if err := ReplaceState(s.db, key, value); err != nil {
		return &StorageError{Key: key, Op: "put", Err: err}
	}
	return nil
}

// Keys lists stored records and their sizes
func (s *Storage) Keys() ([]KeyValuePair, error) {
	pairs, err := ListStateKeys(s.db)
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return pairs, nil
}

// loadRecord decodes the JSON record under key into v. Missing, unreadable
// and corrupt records all report false; only the last two are logged.
func loadRecord(kv KVStore, key string, v interface{}) bool {
	raw, ok, err := kv.Get(key)
	if err != nil {
		LogWarn("Failed to read %s, using defaults: %v", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		LogWarn("%v", &ParseError{Source: "state", Key: key, Err: err})
		return false
	}
	return true
}

func saveRecord(kv KVStore, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &StorageError{Key: key, Op: "encode", Err: err}
	}
	return kv.Put(key, string(data))
}

// LoadTabSnapshot returns the persisted tab list, or nil when absent or corrupt
func LoadTabSnapshot(kv KVStore) []TabRecord {
	var records []TabRecord
	if !loadRecord(kv, KeyTabs, &records) {
		return nil
	}
	return records
}

// SaveTabSnapshot replaces the persisted tab list
func SaveTabSnapshot(kv KVStore, records []TabRecord) error {
	if records == nil {
		records = []TabRecord{}
	}
	return saveRecord(kv, KeyTabs, records)
}
