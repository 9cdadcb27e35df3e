package internal

import (
	"context"
	"net/url"
	"strings"
)

type navigationKind int

const (
	navigationPage navigationKind = iota
	// navigationRestore reloads a tab from the saved snapshot; it is not a new visit
	navigationRestore
	navigationErrorSurface
)

// TabSession is one browsing context
type TabSession struct {
	ID           SessionID
	Address      string // display address, "" for the home surface
	Title        string
	Favicon      []byte
	CanGoBack    bool
	CanGoForward bool
	Handle       Handle
	State        TabState
	LastError    error

	seq           uint64
	kind          navigationKind
	target        string
	faviconHost   string
	cancelFavicon context.CancelFunc
}

func newTabSession(id SessionID, handle Handle, title string) *TabSession {
	if title == "" {
		title = DefaultTabTitle
	}
	return &TabSession{
		ID:     id,
		Title:  title,
		Handle: handle,
		State:  TabCreated,
	}
}

// beginNavigation supersedes any in-flight navigation and returns its sequence number
func (t *TabSession) beginNavigation(kind navigationKind, target string) uint64 {
	t.seq++
	t.kind = kind
	t.target = target
	t.State = TabLoading
	return t.seq
}

func (t *TabSession) isCurrent(seq uint64) bool {
	return seq == t.seq
}

func (t *TabSession) stopFavicon() {
	if t.cancelFavicon != nil {
		t.cancelFavicon()
		t.cancelFavicon = nil
	}
}

// Record returns the persisted form of the tab
func (t *TabSession) Record() TabRecord {
	return TabRecord{Address: t.Address, Title: t.Title}
}

// Seq returns the sequence number of the latest navigation issued for the tab
func (t TabSession) Seq() uint64 {
	return t.seq
}

func hostOf(address string) string {
	u, err := url.Parse(address)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
