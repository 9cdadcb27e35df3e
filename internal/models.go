package internal

import (
	"time"
)

// SessionID identifies a tab within one SessionManager. IDs are handed
// out in creation order and never reused.
type SessionID int

// TabState is the lifecycle state of a tab's current navigation
type TabState int

const (
	TabCreated TabState = iota
	TabLoading
	TabLoaded
	TabFailed
)

func (s TabState) String() string {
	switch s {
	case TabCreated:
		return "created"
	case TabLoading:
		return "loading"
	case TabLoaded:
		return "loaded"
	case TabFailed:
		return "failed"
	}
	return "unknown"
}

// DefaultTabTitle is shown until the engine reports a page title
const DefaultTabTitle = "New Tab"

// RetentionNever disables history eviction
const RetentionNever = -1

// RetentionChoices are the history retention periods offered in settings
var RetentionChoices = []int{1, 7, 30, 90, 365, RetentionNever}

// HistoryItem is one visited page
type HistoryItem struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Address   string    `json:"address" yaml:"address"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Favicon   []byte    `json:"favicon,omitempty" yaml:"-"`
}

// TabRecord is one entry of the persisted tab snapshot
type TabRecord struct {
	Address string `json:"address"`
	Title   string `json:"title"`
}

// EffectivePolicy is the privacy configuration applied to one engine instance
type EffectivePolicy struct {
	JavaScriptEnabled        bool
	ThirdPartyCookiesAllowed bool
}

// EngineConfig converts the policy into the engine's configuration
func (p EffectivePolicy) EngineConfig() EngineConfig {
	return EngineConfig{
		JavaScriptEnabled:        p.JavaScriptEnabled,
		ThirdPartyCookiesAllowed: p.ThirdPartyCookiesAllowed,
	}
}
