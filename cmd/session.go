package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/withandromeda/andromeda/internal"
	"github.com/withandromeda/andromeda/internal/rodengine"
)

const defaultSettleTimeout = 30 * time.Second

// newEngine builds the page engine for commands that load pages
var newEngine = func(ctx context.Context, cfg *internal.Config) (internal.Engine, func() error, error) {
	e, err := rodengine.New(ctx, cfg.Engine)
	if err != nil {
		return nil, nil, err
	}
	return e, e.Close, nil
}

// newFavicons builds the icon resolver for an engine
var newFavicons = func(cfg *internal.Config, engine internal.Engine, metrics *internal.Metrics) internal.FaviconSource {
	cache := internal.NewFaviconCache(cfg.CacheDir, cfg.FaviconMaxAge)
	return internal.NewFaviconResolver(engine, cache, metrics, cfg.FaviconTimeout)
}

type profile struct {
	cfg   *internal.Config
	db    *sql.DB
	store *internal.Storage
}

func openProfile() (*profile, error) {
	cfg := appConfig
	if cfg == nil {
		cfg = internal.DefaultConfig()
	}
	db, err := internal.OpenDatabase(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile database: %w", err)
	}
	return &profile{cfg: cfg, db: db, store: internal.NewStorage(db)}, nil
}

func (p *profile) Close() {
	if err := p.db.Close(); err != nil {
		internal.LogWarn("Failed to close database: %v", err)
	}
}

func (p *profile) privacySettings() internal.PrivacySettings {
	return internal.NewPrivacyPolicyStore(p.store).Load()
}

func (p *profile) history() *internal.HistoryStore {
	return internal.NewHistoryStore(p.store, p.privacySettings().HistoryRetentionDays)
}

type session struct {
	*internal.SessionManager
	metrics     *internal.Metrics
	closeEngine func() error
}

// startSession restores the saved tabs into a live engine
func (p *profile) startSession(ctx context.Context) (*session, error) {
	engine, closeEngine, err := newEngine(ctx, p.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}

	metrics := internal.NewMetrics()
	m, err := internal.NewSessionManager(internal.ManagerConfig{
		Engine:         engine,
		Store:          p.store,
		Favicons:       newFavicons(p.cfg, engine, metrics),
		Metrics:        metrics,
		HomeURL:        p.cfg.HomeURL,
		ErrorURL:       p.cfg.ErrorURL,
		BackendOrigin:  p.cfg.BackendOrigin,
		FaviconTimeout: p.cfg.FaviconTimeout,
	})
	if err != nil {
		_ = closeEngine()
		return nil, err
	}
	return &session{SessionManager: m, metrics: metrics, closeEngine: closeEngine}, nil
}

func (s *session) Close() {
	s.SessionManager.Close()
	if s.closeEngine != nil {
		if err := s.closeEngine(); err != nil {
			internal.LogDebug("Engine shutdown: %v", err)
		}
	}
}

func (s *session) loading() bool {
	for _, t := range s.Tabs() {
		if t.State == internal.TabLoading {
			return true
		}
	}
	return false
}

// settle runs the event loop until no tab is loading
func (s *session) settle(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := internal.ShowProgress(ctx, "Loading pages", func() error {
		for {
			s.Drain()
			if !s.loading() {
				return nil
			}
			if err := s.Next(ctx); err != nil {
				return err
			}
		}
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("pages still loading after %s", timeout)
	}
	return err
}
