package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const faviconCacheVersion = "1.0"

// FaviconCache stores fetched site icons on disk, indexed by icon URL
type FaviconCache struct {
	cacheDir string
	maxAge   time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

// FaviconCacheMetadata stores metadata about the cache
type FaviconCacheMetadata struct {
	CacheVersion string    `yaml:"cache_version"`
	CreatedAt    time.Time `yaml:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at"`
}

// FaviconIndexEntry represents one cached icon
type FaviconIndexEntry struct {
	URL         string    `yaml:"url"`
	File        string    `yaml:"file"`
	ContentType string    `yaml:"content_type"`
	Size        int       `yaml:"size"`
	FetchedAt   time.Time `yaml:"fetched_at"`
}

// FaviconIndex represents the YAML index of all cached icons
type FaviconIndex struct {
	Icons    []FaviconIndexEntry  `yaml:"icons"`
	Metadata FaviconCacheMetadata `yaml:"metadata"`
}

// NewFaviconCache creates a cache in cacheDir. Entries older than maxAge are
// treated as missing; a zero maxAge keeps entries forever.
func NewFaviconCache(cacheDir string, maxAge time.Duration) *FaviconCache {
	return &FaviconCache{
		cacheDir: cacheDir,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// EnsureCacheDir ensures the cache directory exists
func (fc *FaviconCache) EnsureCacheDir() error {
	return os.MkdirAll(fc.cacheDir, 0755)
}

// GetCacheDir returns the cache directory path
func (fc *FaviconCache) GetCacheDir() string {
	return fc.cacheDir
}

// GetIndexPath returns the path to the icon index YAML file
func (fc *FaviconCache) GetIndexPath() string {
	return filepath.Join(fc.cacheDir, "favicons.yaml")
}

// GetIconPath returns the path of the file holding the icon fetched from iconURL
func (fc *FaviconCache) GetIconPath(iconURL string) string {
	sum := sha256.Sum256([]byte(iconURL))
	return filepath.Join(fc.cacheDir, "icon_"+hex.EncodeToString(sum[:16])+".bin")
}

// LoadIndex loads the icon index
func (fc *FaviconCache) LoadIndex() (*FaviconIndex, error) {
	data, err := os.ReadFile(fc.GetIndexPath())
	if err != nil {
		return nil, err
	}

	var index FaviconIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, &ParseError{Source: "favicon-index", Key: fc.GetIndexPath(), Err: err}
	}

	return &index, nil
}

// SaveIndex saves the icon index
func (fc *FaviconCache) SaveIndex(index *FaviconIndex) error {
	if err := fc.EnsureCacheDir(); err != nil {
		return err
	}

	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	return os.WriteFile(fc.GetIndexPath(), data, 0644)
}

// Get returns the cached icon for iconURL if present and fresh
func (fc *FaviconCache) Get(iconURL string) ([]byte, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	index, err := fc.LoadIndex()
	if err != nil {
		return nil, false
	}
	for _, entry := range index.Icons {
		if entry.URL != iconURL {
			continue
		}
		if fc.maxAge > 0 && fc.now().Sub(entry.FetchedAt) > fc.maxAge {
			return nil, false
		}
		data, err := os.ReadFile(filepath.Join(fc.cacheDir, entry.File))
		if err != nil {
			return nil, false
		}
		return data, true
	}
	return nil, false
}

// Put stores data as the icon for iconURL and updates the index
func (fc *FaviconCache) Put(iconURL, contentType string, data []byte) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if err := fc.EnsureCacheDir(); err != nil {
		return err
	}

	now := fc.now()
	index, err := fc.LoadIndex()
	if err != nil {
		index = &FaviconIndex{
			Icons: make([]FaviconIndexEntry, 0),
			Metadata: FaviconCacheMetadata{
				CacheVersion: faviconCacheVersion,
				CreatedAt:    now,
			},
		}
	}
	index.Metadata.UpdatedAt = now

	iconPath := fc.GetIconPath(iconURL)
	if err := os.WriteFile(iconPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write icon: %w", err)
	}

	entry := FaviconIndexEntry{
		URL:         iconURL,
		File:        filepath.Base(iconPath),
		ContentType: contentType,
		Size:        len(data),
		FetchedAt:   now,
	}

	found := false
	for i := range index.Icons {
		if index.Icons[i].URL == iconURL {
			index.Icons[i] = entry
			found = true
			break
		}
	}
	if !found {
		index.Icons = append(index.Icons, entry)
	}

	return fc.SaveIndex(index)
}

// Len returns the number of indexed icons
func (fc *FaviconCache) Len() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	index, err := fc.LoadIndex()
	if err != nil {
		return 0
	}
	return len(index.Icons)
}

// ClearCache removes every cached icon and the index
func (fc *FaviconCache) ClearCache() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	index, err := fc.LoadIndex()
	if err == nil {
		for _, entry := range index.Icons {
			_ = os.Remove(filepath.Join(fc.cacheDir, entry.File))
		}
	}

	if err := os.Remove(fc.GetIndexPath()); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
