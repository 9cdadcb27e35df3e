package internal

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/withandromeda/andromeda/testutil"
)

func newTestFaviconCache(t *testing.T, maxAge time.Duration) (*FaviconCache, *time.Time) {
	t.Helper()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	fc := NewFaviconCache(testutil.CreateTempDir(t), maxAge)
	fc.now = func() time.Time { return now }
	return fc, &now
}

func TestFaviconCache_PutGet(t *testing.T) {
	fc, _ := newTestFaviconCache(t, 0)
	icon := []byte{0x89, 'P', 'N', 'G'}

	if _, ok := fc.Get("https://a.test/favicon.ico"); ok {
		t.Error("Get() on an empty cache should miss")
	}
	if err := fc.Put("https://a.test/favicon.ico", "image/png", icon); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok := fc.Get("https://a.test/favicon.ico")
	if !ok || !bytes.Equal(got, icon) {
		t.Errorf("Get() = %v, %v", got, ok)
	}
	if _, ok := fc.Get("https://b.test/favicon.ico"); ok {
		t.Error("Get() for another URL should miss")
	}

	if err := fc.Put("https://a.test/favicon.ico", "image/png", []byte("new")); err != nil {
		t.Fatal(err)
	}
	if got, _ := fc.Get("https://a.test/favicon.ico"); string(got) != "new" {
		t.Errorf("Get() after overwrite = %q", got)
	}
	if fc.Len() != 1 {
		t.Errorf("Len() = %d, want 1", fc.Len())
	}

	index, err := fc.LoadIndex()
	if err != nil {
		t.Fatalf("LoadIndex() error = %v", err)
	}
	if index.Metadata.CacheVersion != faviconCacheVersion || index.Icons[0].Size != 3 {
		t.Errorf("index = %+v", index)
	}
}

func TestFaviconCache_MaxAge(t *testing.T) {
	tests := []struct {
		name    string
		maxAge  time.Duration
		elapsed time.Duration
		want    bool
	}{
		{"fresh", time.Hour, 30 * time.Minute, true},
		{"expired", time.Hour, 2 * time.Hour, false},
		{"zero keeps forever", 0, 365 * 24 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, now := newTestFaviconCache(t, tt.maxAge)
			if err := fc.Put("https://a.test/i.png", "image/png", []byte("x")); err != nil {
				t.Fatal(err)
			}
			*now = now.Add(tt.elapsed)
			if _, ok := fc.Get("https://a.test/i.png"); ok != tt.want {
				t.Errorf("Get() hit = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestFaviconCache_IconPath(t *testing.T) {
	fc := NewFaviconCache("/cache", 0)
	a := fc.GetIconPath("https://a.test/favicon.ico")
	if a != fc.GetIconPath("https://a.test/favicon.ico") {
		t.Error("icon paths must be stable")
	}
	if a == fc.GetIconPath("https://b.test/favicon.ico") {
		t.Error("different URLs must not share a file")
	}
	if fc.GetIndexPath() != "/cache/favicons.yaml" {
		t.Errorf("GetIndexPath() = %q", fc.GetIndexPath())
	}
}

func TestFaviconCache_ClearCache(t *testing.T) {
	fc, _ := newTestFaviconCache(t, 0)
	if err := fc.ClearCache(); err != nil {
		t.Errorf("ClearCache() on an empty cache error = %v", err)
	}

	_ = fc.Put("https://a.test/i.png", "image/png", []byte("x"))
	iconPath := fc.GetIconPath("https://a.test/i.png")
	if err := fc.ClearCache(); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}
	if _, err := os.Stat(iconPath); !os.IsNotExist(err) {
		t.Error("icon file should be removed")
	}
	if _, err := fc.LoadIndex(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadIndex() error = %v, want not exist", err)
	}
	if fc.Len() != 0 {
		t.Errorf("Len() = %d", fc.Len())
	}
}

func TestFaviconCache_CorruptIndex(t *testing.T) {
	fc, _ := newTestFaviconCache(t, 0)
	testutil.WriteFile(t, fc.GetCacheDir(), "favicons.yaml", []byte("icons: [broken"))

	_, err := fc.LoadIndex()
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("LoadIndex() error = %v, want *ParseError", err)
	}
	if _, ok := fc.Get("https://a.test/i.png"); ok {
		t.Error("Get() with a corrupt index should miss")
	}
	if err := fc.Put("https://a.test/i.png", "image/png", []byte("x")); err != nil {
		t.Fatalf("Put() should rebuild a corrupt index: %v", err)
	}
	if fc.Len() != 1 {
		t.Errorf("Len() = %d, want 1", fc.Len())
	}
}
