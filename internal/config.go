package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultBackendOrigin serves the home and error surfaces
	DefaultBackendOrigin = "https://andromeda-backend-536388745693.us-central1.run.app"

	// DefaultFaviconTimeout bounds one favicon lookup
	DefaultFaviconTimeout = 10 * time.Second

	homePath  = "/ui/index.html"
	errorPath = "/ui/error.html"

	envPrefix = "andromeda"
)

// Config holds all application configuration. Values are layered:
// defaults, then the YAML config file, then ANDROMEDA_* environment variables.
type Config struct {
	ProfileDir       string         `yaml:"-" envconfig:"PROFILE_DIR"`
	DatabasePath     string         `yaml:"databasePath" envconfig:"DATABASE_PATH"`
	CacheDir         string         `yaml:"cacheDir" envconfig:"CACHE_DIR"`
	BackendOrigin    string         `yaml:"backendOrigin" envconfig:"BACKEND_ORIGIN"`
	HomeURL          string         `yaml:"homeURL" envconfig:"HOME_URL"`
	ErrorURL         string         `yaml:"errorURL" envconfig:"ERROR_URL"`
	SidebarHideDelay time.Duration  `yaml:"sidebarHideDelay" envconfig:"SIDEBAR_HIDE_DELAY"`
	FaviconTimeout   time.Duration  `yaml:"faviconTimeout" envconfig:"FAVICON_TIMEOUT"`
	FaviconMaxAge    time.Duration  `yaml:"faviconMaxAge" envconfig:"FAVICON_MAX_AGE"`
	LogLevel         string         `yaml:"logLevel" envconfig:"LOG_LEVEL"`
	LogDevelopment   bool           `yaml:"logDevelopment" envconfig:"LOG_DEV"`
	Engine           EngineSettings `yaml:"engine" envconfig:"ENGINE"`
}

// EngineSettings configure the Chromium engine adapter
type EngineSettings struct {
	ControlURL string `yaml:"controlURL" envconfig:"CONTROL_URL"` // attach to a running browser
	Bin        string `yaml:"bin" envconfig:"BIN"`                // browser binary; downloaded when empty
	Headless   bool   `yaml:"headless" envconfig:"HEADLESS"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	cfg := baseConfig()
	cfg.resolve()
	return cfg
}

func baseConfig() *Config {
	profile, err := DetectProfileDir()
	if err != nil {
		profile = ".andromeda"
	}
	return &Config{
		ProfileDir:       profile,
		BackendOrigin:    DefaultBackendOrigin,
		SidebarHideDelay: DefaultSidebarHideDelay,
		FaviconTimeout:   DefaultFaviconTimeout,
		FaviconMaxAge:    7 * 24 * time.Hour,
		LogLevel:         "info",
		Engine: EngineSettings{
			Headless: true,
		},
	}
}

// resolve fills values derived from other settings
func (c *Config) resolve() {
	paths := NewProfilePaths(c.ProfileDir)
	if c.DatabasePath == "" {
		c.DatabasePath = paths.DatabasePath
	}
	if c.CacheDir == "" {
		c.CacheDir = paths.CacheDir
	}
	if c.HomeURL == "" {
		c.HomeURL = c.BackendOrigin + homePath
	}
	if c.ErrorURL == "" {
		c.ErrorURL = c.BackendOrigin + errorPath
	}
	if c.SidebarHideDelay <= 0 {
		c.SidebarHideDelay = DefaultSidebarHideDelay
	}
}

// Paths returns the profile layout for this configuration
func (c *Config) Paths() ProfilePaths {
	paths := NewProfilePaths(c.ProfileDir)
	paths.DatabasePath = c.DatabasePath
	paths.CacheDir = c.CacheDir
	return paths
}

// LoadConfig builds the configuration. An empty path reads config.yaml from
// the profile directory if it exists; an explicit path must exist.
func LoadConfig(path string) (*Config, error) {
	cfg := baseConfig()

	var profile struct {
		ProfileDir string `envconfig:"PROFILE_DIR"`
	}
	if err := envconfig.Process(envPrefix, &profile); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if profile.ProfileDir != "" {
		cfg.ProfileDir = profile.ProfileDir
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.ProfileDir, "config.yaml")
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ParseError{Source: "config", Key: path, Err: err}
		}
		LogDebug("Loaded config from %s", path)
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.resolve()
	return cfg, nil
}
