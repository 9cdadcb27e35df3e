// Package rodengine drives Chromium over the DevTools protocol as the
// browser's page engine. Each handle owns one page target.
package rodengine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/withandromeda/andromeda/internal"
)

const defaultNavigationTimeout = 30 * time.Second

type pageState struct {
	page          *rod.Page
	cfg           internal.EngineConfig
	clearHeaders  func()
	lastNavigated string
}

// Engine implements internal.Engine on go-rod
type Engine struct {
	mu         sync.Mutex
	browser    *rod.Browser
	pages      map[internal.Handle]*pageState
	reporter   internal.Reporter
	navTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New connects to settings.ControlURL, or launches a browser when it is empty
func New(ctx context.Context, settings internal.EngineSettings) (*Engine, error) {
	controlURL := settings.ControlURL
	if controlURL == "" {
		launch := launcher.New().Headless(settings.Headless)
		if settings.Bin != "" {
			launch = launch.Bin(settings.Bin)
		}
		u, err := launch.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	ectx, cancel := context.WithCancel(ctx)
	browser := rod.New().ControlURL(controlURL).Context(ectx)
	if err := browser.Connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	internal.LogDebug("Connected to browser at %s", controlURL)

	return &Engine{
		browser:    browser,
		pages:      make(map[internal.Handle]*pageState),
		navTimeout: defaultNavigationTimeout,
		ctx:        ectx,
		cancel:     cancel,
	}, nil
}

// Bind sets the reporter that receives navigation completions
func (e *Engine) Bind(r internal.Reporter) {
	e.mu.Lock()
	e.reporter = r
	e.mu.Unlock()
}

// CreateInstance opens a blank page configured with cfg
func (e *Engine) CreateInstance(cfg internal.EngineConfig) (internal.Handle, error) {
	page, err := e.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}
	if err := applyConfig(page, cfg); err != nil {
		_ = page.Close()
		return "", err
	}

	h := internal.Handle(uuid.NewString())
	e.mu.Lock()
	e.pages[h] = &pageState{page: page, cfg: cfg}
	e.mu.Unlock()
	return h, nil
}

// applyConfig toggles script execution. Third-party cookie blocking has no
// per-target control in this protocol version, so only the flag is recorded.
func applyConfig(page *rod.Page, cfg internal.EngineConfig) error {
	if err := (proto.EmulationSetScriptExecutionDisabled{Value: !cfg.JavaScriptEnabled}).Call(page); err != nil {
		return fmt.Errorf("set script execution: %w", err)
	}
	return nil
}

// Configure reapplies the privacy configuration of h
func (e *Engine) Configure(h internal.Handle, cfg internal.EngineConfig) error {
	ps, err := e.get(h)
	if err != nil {
		return err
	}
	if err := applyConfig(ps.page, cfg); err != nil {
		return err
	}
	e.mu.Lock()
	ps.cfg = cfg
	e.mu.Unlock()
	return nil
}

// Destroy closes the page of h without waiting for it
func (e *Engine) Destroy(h internal.Handle) {
	e.mu.Lock()
	ps, ok := e.pages[h]
	delete(e.pages, h)
	e.mu.Unlock()
	if !ok {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := ps.page.Close(); err != nil {
			internal.LogDebug("Closing page %s: %v", h, err)
		}
	}()
}

// Load navigates h and reports the outcome with nav.Seq
func (e *Engine) Load(h internal.Handle, nav internal.Navigation) error {
	ps, err := e.get(h)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if ps.clearHeaders != nil {
		ps.clearHeaders()
		ps.clearHeaders = nil
	}
	if pairs := headerPairs(nav.Headers); len(pairs) > 0 {
		clear, err := ps.page.SetExtraHeaders(pairs)
		if err != nil {
			e.mu.Unlock()
			return fmt.Errorf("set headers: %w", err)
		}
		ps.clearHeaders = clear
	}
	e.mu.Unlock()

	e.run(h, nav.Seq, func(page *rod.Page) error {
		if err := page.Navigate(nav.URL); err != nil {
			return err
		}
		return page.WaitLoad()
	})
	return nil
}

// Reload reloads h
func (e *Engine) Reload(h internal.Handle, seq uint64) error {
	return e.historyStep(h, seq, (*rod.Page).Reload)
}

// GoBack steps h back in its session history
func (e *Engine) GoBack(h internal.Handle, seq uint64) error {
	return e.historyStep(h, seq, (*rod.Page).NavigateBack)
}

// GoForward steps h forward in its session history
func (e *Engine) GoForward(h internal.Handle, seq uint64) error {
	return e.historyStep(h, seq, (*rod.Page).NavigateForward)
}

func (e *Engine) historyStep(h internal.Handle, seq uint64, step func(*rod.Page) error) error {
	if _, err := e.get(h); err != nil {
		return err
	}
	e.run(h, seq, func(page *rod.Page) error {
		wait := page.WaitNavigation(proto.PageLifecycleEventNameLoad)
		if err := step(page); err != nil {
			return err
		}
		wait()
		return nil
	})
	return nil
}

// run performs a navigation off the caller's goroutine and posts its result
func (e *Engine) run(h internal.Handle, seq uint64, navigate func(*rod.Page) error) {
	ps, err := e.get(h)
	if err != nil {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		page := ps.page.Context(e.ctx).Timeout(e.navTimeout)
		if err := navigate(page); err != nil {
			if e.ctx.Err() != nil {
				return
			}
			e.post(internal.Event{Handle: h, Seq: seq, Kind: internal.EventNavigationFailed, Err: err})
			return
		}

		info, err := ps.page.Info()
		if err != nil {
			e.post(internal.Event{Handle: h, Seq: seq, Kind: internal.EventNavigationFailed, Err: err})
			return
		}
		e.mu.Lock()
		ps.lastNavigated = info.URL
		e.mu.Unlock()
		e.post(internal.Event{
			Handle:  h,
			Seq:     seq,
			Kind:    internal.EventNavigationFinished,
			Address: info.URL,
			Title:   info.Title,
		})
	}()
}

func (e *Engine) post(ev internal.Event) {
	e.mu.Lock()
	r := e.reporter
	e.mu.Unlock()
	if r != nil {
		r.Post(ev)
	}
}

// CanGoBack reports whether h has an earlier history entry
func (e *Engine) CanGoBack(h internal.Handle) bool {
	back, _ := e.historyFlags(h)
	return back
}

// CanGoForward reports whether h has a later history entry
func (e *Engine) CanGoForward(h internal.Handle) bool {
	_, forward := e.historyFlags(h)
	return forward
}

func (e *Engine) historyFlags(h internal.Handle) (bool, bool) {
	ps, err := e.get(h)
	if err != nil {
		return false, false
	}
	hist, err := proto.PageGetNavigationHistory{}.Call(ps.page)
	if err != nil {
		return false, false
	}
	return navigationFlags(hist)
}

// navigationFlags ignores the about:blank entry every page starts with
func navigationFlags(hist *proto.PageGetNavigationHistoryResult) (back, forward bool) {
	if hist == nil || len(hist.Entries) == 0 {
		return false, false
	}
	first := 0
	if hist.Entries[0].URL == "about:blank" {
		first = 1
	}
	return hist.CurrentIndex > first, hist.CurrentIndex < len(hist.Entries)-1
}

// CurrentAddress returns the committed URL of h
func (e *Engine) CurrentAddress(h internal.Handle) string {
	ps, err := e.get(h)
	if err != nil {
		return ""
	}
	info, err := ps.page.Info()
	if err != nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		return ps.lastNavigated
	}
	return info.URL
}

// CurrentTitle returns the document title of h
func (e *Engine) CurrentTitle(h internal.Handle) string {
	ps, err := e.get(h)
	if err != nil {
		return ""
	}
	info, err := ps.page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

// EvaluateScript evaluates a JavaScript expression in h and returns its
// value as a string
func (e *Engine) EvaluateScript(ctx context.Context, h internal.Handle, script string) (string, error) {
	ps, err := e.get(h)
	if err != nil {
		return "", err
	}
	res, err := ps.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           fmt.Sprintf("() => (%s)", script),
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return "", fmt.Errorf("evaluate: %w", err)
	}
	if res == nil || res.Value.Nil() {
		return "", nil
	}
	return res.Value.String(), nil
}

// EditCommand runs a clipboard or selection command in h
func (e *Engine) EditCommand(h internal.Handle, cmd internal.EditCommand) error {
	ps, err := e.get(h)
	if err != nil {
		return err
	}
	_, err = ps.page.Evaluate(&rod.EvalOptions{
		JS:      `(cmd) => document.execCommand(cmd)`,
		JSArgs:  []interface{}{string(cmd)},
		ByValue: true,
	})
	if err != nil {
		return fmt.Errorf("edit command %s: %w", cmd, err)
	}
	return nil
}

// Close closes every page and the browser connection
func (e *Engine) Close() error {
	e.mu.Lock()
	pages := make([]*rod.Page, 0, len(e.pages))
	for h, ps := range e.pages {
		pages = append(pages, ps.page)
		delete(e.pages, h)
	}
	e.mu.Unlock()

	var g errgroup.Group
	for _, page := range pages {
		page := page
		g.Go(page.Close)
	}
	pageErr := g.Wait()

	e.cancel()
	e.wg.Wait()
	return errors.Join(pageErr, e.browser.Close())
}

func (e *Engine) get(h internal.Handle) (*pageState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, ok := e.pages[h]
	if !ok {
		return nil, fmt.Errorf("unknown engine handle %s", h)
	}
	return ps, nil
}

// headerPairs flattens headers into the key/value list rod expects,
// sorted by name
func headerPairs(headers map[string]string) []string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, len(headers)*2)
	for _, name := range names {
		pairs = append(pairs, name, headers[name])
	}
	return pairs
}
