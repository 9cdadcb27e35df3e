package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ProfilePaths holds the locations of a browser profile
type ProfilePaths struct {
	BasePath     string // profile directory
	DatabasePath string // state.db holding tabs, history and settings
	CacheDir     string // favicon cache
	ConfigPath   string // optional config.yaml
}

// DetectProfileDir returns the per-user profile directory for this OS
func DetectProfileDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library/Application Support/Andromeda"), nil
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "andromeda"), nil
		}
		return filepath.Join(home, ".config/andromeda"), nil
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("unsupported OS: %s: %w", runtime.GOOS, err)
		}
		return filepath.Join(dir, "Andromeda"), nil
	}
}

// NewProfilePaths returns the standard layout below base
func NewProfilePaths(base string) ProfilePaths {
	return ProfilePaths{
		BasePath:     base,
		DatabasePath: filepath.Join(base, "state.db"),
		CacheDir:     filepath.Join(base, "favicons"),
		ConfigPath:   filepath.Join(base, "config.yaml"),
	}
}

// DatabaseExists checks if the state database exists
func (pp ProfilePaths) DatabaseExists() bool {
	_, err := os.Stat(pp.DatabasePath)
	return err == nil
}

// ConfigExists checks if a config file exists
func (pp ProfilePaths) ConfigExists() bool {
	_, err := os.Stat(pp.ConfigPath)
	return err == nil
}

// EnsureProfileDir creates the profile directory
func (pp ProfilePaths) EnsureProfileDir() error {
	return os.MkdirAll(pp.BasePath, 0755)
}
