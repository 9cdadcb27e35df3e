package internal

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// HistoryStore is the chronological log of visited pages. It is owned by
// the manager's loop goroutine and is not safe for concurrent use.
type HistoryStore struct {
	kv    KVStore
	items []HistoryItem
	now   func() time.Time
}

// NewHistoryStore loads the persisted history and evicts items older than
// retentionDays. A retentionDays of RetentionNever (or any value <= 0)
// keeps everything.
func NewHistoryStore(kv KVStore, retentionDays int) *HistoryStore {
	return newHistoryStoreWithClock(kv, retentionDays, time.Now)
}

func newHistoryStoreWithClock(kv KVStore, retentionDays int, now func() time.Time) *HistoryStore {
	h := &HistoryStore{kv: kv, now: now}
	var items []HistoryItem
	if loadRecord(kv, KeyHistory, &items) {
		h.items = items
	}
	if h.evict(retentionDays) > 0 {
		if err := h.persist(); err != nil {
			LogWarn("Failed to write back pruned history: %v", err)
		}
	}
	return h
}

func (h *HistoryStore) evict(retentionDays int) int {
	if retentionDays <= 0 || len(h.items) == 0 {
		return 0
	}
	cutoff := h.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	kept := h.items[:0]
	for _, item := range h.items {
		if item.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, item)
	}
	dropped := len(h.items) - len(kept)
	h.items = kept
	if dropped > 0 {
		LogDebug("Evicted %d history items older than %d days", dropped, retentionDays)
	}
	return dropped
}

// Append records a visit. The item is kept in memory even if persisting fails.
func (h *HistoryStore) Append(title, address string, favicon []byte) (HistoryItem, error) {
	item := HistoryItem{
		ID:        uuid.NewString(),
		Title:     title,
		Address:   address,
		Timestamp: h.now(),
	}
	if len(favicon) > 0 {
		item.Favicon = append([]byte(nil), favicon...)
	}
	h.items = append(h.items, item)
	return item, h.persist()
}

// Search returns items whose title or address contains query, ignoring
// case, most recent first. An empty query returns everything.
func (h *HistoryStore) Search(query string) []HistoryItem {
	q := strings.ToLower(query)
	results := make([]HistoryItem, 0, len(h.items))
	for i := len(h.items) - 1; i >= 0; i-- {
		item := h.items[i]
		if q == "" ||
			strings.Contains(strings.ToLower(item.Title), q) ||
			strings.Contains(strings.ToLower(item.Address), q) {
			results = append(results, item)
		}
	}
	return results
}

// Clear removes every item and persists the empty log
func (h *HistoryStore) Clear() error {
	h.items = nil
	return h.persist()
}

// Len returns the number of items
func (h *HistoryStore) Len() int {
	return len(h.items)
}

// Items returns a chronological copy of the log
func (h *HistoryStore) Items() []HistoryItem {
	return append([]HistoryItem(nil), h.items...)
}

func (h *HistoryStore) persist() error {
	items := h.items
	if items == nil {
		items = []HistoryItem{}
	}
	return saveRecord(h.kv, KeyHistory, items)
}
