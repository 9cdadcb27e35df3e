package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrManagerClosed is returned once Close has been called
var ErrManagerClosed = errors.New("session manager closed")

// ErrUnknownEditCommand is returned for edit commands the engine does not support
var ErrUnknownEditCommand = errors.New("unknown edit command")

const eventQueueSize = 256

// FaviconSource resolves the icon of a loaded page
type FaviconSource interface {
	Resolve(ctx context.Context, req FaviconRequest) ([]byte, error)
}

// ManagerConfig wires a SessionManager to its collaborators
type ManagerConfig struct {
	Engine   Engine
	Store    KVStore
	Favicons FaviconSource // optional
	Metrics  *Metrics      // optional

	HomeURL        string
	ErrorURL       string
	BackendOrigin  string
	FaviconTimeout time.Duration
}

type subscriber struct {
	id int
	fn func(Change)
}

// SessionManager owns the open tabs, the active selection, history and
// privacy settings. All methods except Post and Do must be called from the
// goroutine that drives the loop (Run, Next or Drain).
type SessionManager struct {
	engine   Engine
	kv       KVStore
	privacy  *PrivacyPolicyStore
	settings PrivacySettings
	history  *HistoryStore
	favicons FaviconSource
	metrics  *Metrics

	homeURL        string
	errorURL       string
	backendOrigin  string
	faviconTimeout time.Duration

	sessions       []*TabSession
	active         int
	nextID         SessionID
	currentAddress string

	subscribers []subscriber
	nextSubID   int

	events    chan Event
	calls     chan func()
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSessionManager restores the persisted tabs (one per record, the first
// one active) or opens a single blank tab.
func NewSessionManager(cfg ManagerConfig) (*SessionManager, error) {
	if cfg.Engine == nil {
		return nil, errors.New("session manager requires an engine")
	}
	if cfg.Store == nil {
		return nil, errors.New("session manager requires a store")
	}

	if cfg.BackendOrigin == "" {
		cfg.BackendOrigin = DefaultBackendOrigin
	}
	if cfg.HomeURL == "" {
		cfg.HomeURL = cfg.BackendOrigin + homePath
	}
	if cfg.ErrorURL == "" {
		cfg.ErrorURL = cfg.BackendOrigin + errorPath
	}
	if cfg.FaviconTimeout <= 0 {
		cfg.FaviconTimeout = DefaultFaviconTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	privacy := NewPrivacyPolicyStore(cfg.Store)
	settings := privacy.Load()

	m := &SessionManager{
		engine:         cfg.Engine,
		kv:             cfg.Store,
		privacy:        privacy,
		settings:       settings,
		history:        NewHistoryStore(cfg.Store, settings.HistoryRetentionDays),
		favicons:       cfg.Favicons,
		metrics:        cfg.Metrics,
		homeURL:        cfg.HomeURL,
		errorURL:       cfg.ErrorURL,
		backendOrigin:  cfg.BackendOrigin,
		faviconTimeout: cfg.FaviconTimeout,
		events:         make(chan Event, eventQueueSize),
		calls:          make(chan func(), eventQueueSize),
		done:           make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}
	m.engine.Bind(m)

	for _, rec := range LoadTabSnapshot(cfg.Store) {
		if _, err := m.openTab(rec.Address, rec.Title, navigationRestore); err != nil {
			LogWarn("Skipping restored tab %q: %v", rec.Address, err)
		}
	}
	if len(m.sessions) == 0 {
		if _, err := m.openTab("", "", navigationPage); err != nil {
			cancel()
			return nil, err
		}
	}
	LogDebug("Session manager started with %d tab(s)", len(m.sessions))

	m.active = 0
	m.currentAddress = m.sessions[0].Address
	m.persistTabs()
	m.metrics.SetTabsOpen(len(m.sessions))
	m.metrics.SetHistoryItems(m.history.Len())
	return m, nil
}

// Post queues an engine or resolver completion. Safe from any goroutine.
// Events posted after Close are dropped.
func (m *SessionManager) Post(ev Event) {
	select {
	case <-m.done:
		return
	default:
	}
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

// Do queues fn to run on the loop goroutine. Safe from any goroutine.
func (m *SessionManager) Do(fn func()) {
	select {
	case <-m.done:
		return
	default:
	}
	select {
	case m.calls <- fn:
	case <-m.done:
	}
}

// Next blocks until one queued event or call has been applied
func (m *SessionManager) Next(ctx context.Context) error {
	select {
	case ev := <-m.events:
		m.apply(ev)
		return nil
	case fn := <-m.calls:
		fn()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrManagerClosed
	}
}

// Drain applies everything already queued without blocking and returns
// how many items were applied
func (m *SessionManager) Drain() int {
	n := 0
	for {
		select {
		case ev := <-m.events:
			m.apply(ev)
		case fn := <-m.calls:
			fn()
		default:
			return n
		}
		n++
	}
}

// Run drives the loop until ctx is done or the manager is closed
func (m *SessionManager) Run(ctx context.Context) error {
	for {
		if err := m.Next(ctx); err != nil {
			if errors.Is(err, ErrManagerClosed) {
				return nil
			}
			return err
		}
	}
}

// Close destroys every engine instance and stops accepting events. It waits
// for in-flight favicon lookups to observe cancellation.
func (m *SessionManager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.cancel()
		for _, t := range m.sessions {
			t.stopFavicon()
			m.engine.Destroy(t.Handle)
		}
		m.wg.Wait()
	})
}

func (m *SessionManager) closed() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// Subscribe registers fn for change notifications. Call the returned
// function to unsubscribe.
func (m *SessionManager) Subscribe(fn func(Change)) (cancel func()) {
	m.nextSubID++
	id := m.nextSubID
	m.subscribers = append(m.subscribers, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range m.subscribers {
			if s.id == id {
				m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (m *SessionManager) notify(kind ChangeKind, id SessionID) {
	for _, s := range append([]subscriber(nil), m.subscribers...) {
		s.fn(Change{Kind: kind, SessionID: id})
	}
}

func (m *SessionManager) setCurrentAddress(address string) {
	if m.currentAddress == address {
		return
	}
	m.currentAddress = address
	m.notify(ChangeCurrentAddress, m.sessions[m.active].ID)
}

// DisplayAddress hides addresses served from the backend origin
func (m *SessionManager) DisplayAddress(address string) string {
	if m.backendOrigin != "" && strings.HasPrefix(address, m.backendOrigin) {
		return ""
	}
	return address
}

// CreateTab opens a tab and makes it active. An empty address opens the
// home surface, which is displayed as "".
func (m *SessionManager) CreateTab(address, title string) (SessionID, error) {
	if m.closed() {
		return 0, ErrManagerClosed
	}
	t, err := m.openTab(address, title, navigationPage)
	if err != nil {
		return 0, err
	}
	m.active = len(m.sessions) - 1
	m.notify(ChangeTabs, t.ID)
	m.notify(ChangeSelection, t.ID)
	m.setCurrentAddress(t.Address)
	m.persistTabs()
	m.metrics.SetTabsOpen(len(m.sessions))
	return t.ID, nil
}

func (m *SessionManager) openTab(address, title string, kind navigationKind) (*TabSession, error) {
	target := address
	if target == "" {
		target = m.homeURL
	}
	policy := ResolveEffective(target, m.settings)
	handle, err := m.engine.CreateInstance(policy.EngineConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create engine instance: %w", err)
	}

	m.nextID++
	t := newTabSession(m.nextID, handle, title)
	t.Address = m.DisplayAddress(address)
	m.sessions = append(m.sessions, t)
	m.load(t, target, kind)
	return t, nil
}

func (m *SessionManager) load(t *TabSession, target string, kind navigationKind) {
	seq := t.beginNavigation(kind, target)
	nav := Navigation{Seq: seq, URL: target, Headers: NavigationHeaders()}
	LogDebug("Tab %d loading %s (seq %d)", t.ID, target, seq)
	if err := m.engine.Load(t.Handle, nav); err != nil {
		m.failNavigation(t, err)
		return
	}
	m.metrics.RecordNavigation("issued")
}

// CloseTab closes the tab at index. It is a no-op for an out-of-range index
// or when only one tab is open.
func (m *SessionManager) CloseTab(index int) {
	if index < 0 || index >= len(m.sessions) || len(m.sessions) <= 1 {
		return
	}
	t := m.sessions[index]
	wasSelected := m.sessions[m.active]

	t.stopFavicon()
	m.engine.Destroy(t.Handle)
	m.sessions = append(m.sessions[:index], m.sessions[index+1:]...)

	if index < m.active {
		m.active--
	}
	if m.active >= len(m.sessions) {
		m.active = len(m.sessions) - 1
	}

	m.notify(ChangeTabs, t.ID)
	if m.sessions[m.active] != wasSelected {
		m.notify(ChangeSelection, m.sessions[m.active].ID)
	}
	m.setCurrentAddress(m.sessions[m.active].Address)
	m.persistTabs()
	m.metrics.SetTabsOpen(len(m.sessions))
}

// SelectTab activates the tab at index; out-of-range indexes are ignored
func (m *SessionManager) SelectTab(index int) {
	if index < 0 || index >= len(m.sessions) {
		return
	}
	if index != m.active {
		m.active = index
		m.notify(ChangeSelection, m.sessions[index].ID)
	}
	m.setCurrentAddress(m.sessions[index].Address)
}

// NormalizeAddress trims text, adds https:// when no http(s) scheme is
// given and reports whether the result is a usable URL
func NormalizeAddress(text string) (string, bool) {
	address := strings.TrimSpace(text)
	if scheme := httpScheme(address); scheme != "" {
		address = scheme + address[len(scheme):]
	} else {
		address = "https://" + address
	}
	u, err := url.Parse(address)
	if err != nil || u.Host == "" || strings.ContainsAny(u.Host, " \t\r\n") {
		return "", false
	}
	return address, true
}

// httpScheme returns the lowercase "http://" or "https://" prefix of
// address, matched without regard to case, or "" when there is none
func httpScheme(address string) string {
	for _, scheme := range []string{"https://", "http://"} {
		if len(address) >= len(scheme) && strings.EqualFold(address[:len(scheme)], scheme) {
			return scheme
		}
	}
	return ""
}

// Navigate loads text in the active tab. Text that does not form a URL is
// ignored and false is returned.
func (m *SessionManager) Navigate(text string) bool {
	if m.closed() {
		return false
	}
	address, ok := NormalizeAddress(text)
	if !ok {
		LogDebug("Ignoring malformed address %q", text)
		return false
	}

	t := m.sessions[m.active]
	policy := ResolveEffective(address, m.settings)
	if err := m.engine.Configure(t.Handle, policy.EngineConfig()); err != nil {
		LogWarn("Failed to apply privacy policy to tab %d: %v", t.ID, err)
	}
	t.stopFavicon()
	t.Address = m.DisplayAddress(address)
	t.LastError = nil
	m.load(t, address, navigationPage)

	m.notify(ChangeTab, t.ID)
	m.setCurrentAddress(t.Address)
	m.persistTabs()
	return true
}

// GoBack steps the active tab back when its engine allows it
func (m *SessionManager) GoBack() {
	t := m.sessions[m.active]
	if !t.CanGoBack || m.closed() {
		return
	}
	t.stopFavicon()
	seq := t.beginNavigation(navigationPage, "")
	if err := m.engine.GoBack(t.Handle, seq); err != nil {
		m.failNavigation(t, err)
	}
	m.notify(ChangeTab, t.ID)
}

// GoForward steps the active tab forward when its engine allows it
func (m *SessionManager) GoForward() {
	t := m.sessions[m.active]
	if !t.CanGoForward || m.closed() {
		return
	}
	t.stopFavicon()
	seq := t.beginNavigation(navigationPage, "")
	if err := m.engine.GoForward(t.Handle, seq); err != nil {
		m.failNavigation(t, err)
	}
	m.notify(ChangeTab, t.ID)
}

// Reload reloads the active tab. A failed tab retries the address that failed.
func (m *SessionManager) Reload() {
	if m.closed() {
		return
	}
	t := m.sessions[m.active]
	if t.State == TabFailed {
		target := t.Address
		if target == "" {
			target = m.homeURL
		}
		t.LastError = nil
		m.load(t, target, navigationPage)
		m.notify(ChangeTab, t.ID)
		return
	}
	seq := t.beginNavigation(navigationPage, t.target)
	if err := m.engine.Reload(t.Handle, seq); err != nil {
		m.failNavigation(t, err)
	}
	m.notify(ChangeTab, t.ID)
}

func (m *SessionManager) apply(ev Event) {
	var t *TabSession
	if ev.Handle != "" {
		t = m.findByHandle(ev.Handle)
	} else {
		t = m.findByID(ev.SessionID)
	}
	if t == nil {
		m.metrics.RecordStaleEvent()
		LogDebug("Dropping %s for a closed tab", ev.Kind)
		return
	}

	switch ev.Kind {
	case EventNavigationFinished:
		m.OnNavigationFinished(t.ID, ev.Seq, ev.Address, ev.Title)
	case EventNavigationFailed:
		m.OnNavigationFailed(t.ID, ev.Seq, ev.Err)
	case EventTitleChanged:
		m.OnTitleChanged(t.ID, ev.Seq, ev.Title)
	case EventFaviconResolved:
		m.OnFaviconResolved(t.ID, ev.Seq, ev.Address, ev.Favicon)
	default:
		LogWarn("Unknown event kind %d", ev.Kind)
	}
}

// current returns the tab for id when seq is its latest navigation
func (m *SessionManager) current(id SessionID, seq uint64, kind EventKind) *TabSession {
	t := m.findByID(id)
	if t == nil || !t.isCurrent(seq) {
		m.metrics.RecordStaleEvent()
		LogDebug("Dropping stale %s for tab %d (seq %d)", kind, id, seq)
		return nil
	}
	return t
}

// OnNavigationFinished applies a successful load reported by the engine
func (m *SessionManager) OnNavigationFinished(id SessionID, seq uint64, address, title string) {
	t := m.current(id, seq, EventNavigationFinished)
	if t == nil {
		return
	}
	t.CanGoBack = m.engine.CanGoBack(t.Handle)
	t.CanGoForward = m.engine.CanGoForward(t.Handle)

	if t.kind == navigationErrorSurface {
		// the tab keeps showing the address that failed
		m.notify(ChangeTab, t.ID)
		return
	}

	if address == "" {
		address = m.engine.CurrentAddress(t.Handle)
	}
	if address == "" {
		address = t.target
	}
	if title == "" {
		title = m.engine.CurrentTitle(t.Handle)
	}

	display := m.DisplayAddress(address)
	t.Address = display
	t.State = TabLoaded
	t.LastError = nil
	m.metrics.RecordNavigation("finished")

	if display == "" {
		t.Title = DefaultTabTitle
		t.Favicon = nil
		t.faviconHost = ""
	} else {
		if title != "" {
			t.Title = title
		}
		host := hostOf(display)
		if host != t.faviconHost {
			t.Favicon = nil
			t.faviconHost = ""
		}
		if t.kind != navigationRestore {
			if _, err := m.history.Append(t.Title, display, t.Favicon); err != nil {
				LogWarn("Failed to save history: %v", err)
			}
			m.metrics.SetHistoryItems(m.history.Len())
		}
		m.resolveFavicon(t, seq, display)
	}

	m.notify(ChangeTab, t.ID)
	if t == m.sessions[m.active] {
		m.setCurrentAddress(display)
	}
	m.persistTabs()
}

// OnNavigationFailed marks the tab failed and shows the error surface
func (m *SessionManager) OnNavigationFailed(id SessionID, seq uint64, err error) {
	t := m.current(id, seq, EventNavigationFailed)
	if t == nil {
		return
	}
	m.failNavigation(t, err)
}

func (m *SessionManager) failNavigation(t *TabSession, err error) {
	m.metrics.RecordNavigation("failed")
	if t.kind == navigationErrorSurface {
		t.State = TabFailed
		LogWarn("Error page failed to load in tab %d: %v", t.ID, err)
		m.notify(ChangeTab, t.ID)
		return
	}

	t.LastError = &NavigationError{SessionID: t.ID, Address: t.Address, Err: err}
	LogWarn("%v", t.LastError)
	t.stopFavicon()
	m.load(t, m.errorURL, navigationErrorSurface)
	t.State = TabFailed
	m.notify(ChangeTab, t.ID)
}

// OnTitleChanged applies a title resolved after the load finished
func (m *SessionManager) OnTitleChanged(id SessionID, seq uint64, title string) {
	t := m.current(id, seq, EventTitleChanged)
	if t == nil || title == "" || t.Address == "" || t.kind == navigationErrorSurface {
		return
	}
	if t.Title == title {
		return
	}
	t.Title = title
	m.notify(ChangeTab, t.ID)
	m.persistTabs()
}

// OnFaviconResolved applies an icon resolved for the page at address
func (m *SessionManager) OnFaviconResolved(id SessionID, seq uint64, address string, data []byte) {
	t := m.current(id, seq, EventFaviconResolved)
	if t == nil || len(data) == 0 {
		return
	}
	t.Favicon = data
	t.faviconHost = hostOf(address)
	t.cancelFavicon = nil
	m.notify(ChangeTab, t.ID)
}

func (m *SessionManager) resolveFavicon(t *TabSession, seq uint64, address string) {
	if m.favicons == nil {
		return
	}
	t.stopFavicon()
	ctx, cancel := context.WithTimeout(m.ctx, m.faviconTimeout)
	t.cancelFavicon = cancel
	id, handle := t.ID, t.Handle

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		data, err := m.favicons.Resolve(ctx, FaviconRequest{Handle: handle, PageAddress: address})
		if err != nil {
			if ctx.Err() == nil {
				LogDebug("Favicon for %s unavailable: %v", address, err)
			}
			return
		}
		m.Post(Event{SessionID: id, Seq: seq, Kind: EventFaviconResolved, Address: address, Favicon: data})
	}()
}

// PerformEditCommand forwards a clipboard or selection command to the active tab
func (m *SessionManager) PerformEditCommand(cmd EditCommand) error {
	if !cmd.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEditCommand, cmd)
	}
	return m.engine.EditCommand(m.sessions[m.active].Handle, cmd)
}

// FindInPage searches the active tab for query and reports whether it was found.
// An empty query does nothing.
func (m *SessionManager) FindInPage(ctx context.Context, query string) (bool, error) {
	if query == "" {
		return false, nil
	}
	quoted, err := json.Marshal(query)
	if err != nil {
		return false, err
	}
	script := fmt.Sprintf("window.find(%s, false, false, true)", quoted)
	result, err := m.engine.EvaluateScript(ctx, m.sessions[m.active].Handle, script)
	if err != nil {
		return false, fmt.Errorf("find in page: %w", err)
	}
	return result == "true", nil
}

// UpdatePrivacySettings persists settings and reapplies the resolved policy
// to every open tab
func (m *SessionManager) UpdatePrivacySettings(settings PrivacySettings) error {
	if err := m.privacy.Save(settings); err != nil {
		return err
	}
	m.settings = settings
	for _, t := range m.sessions {
		target := t.Address
		if target == "" {
			target = m.homeURL
		}
		if err := m.engine.Configure(t.Handle, ResolveEffective(target, settings).EngineConfig()); err != nil {
			LogWarn("Failed to apply privacy policy to tab %d: %v", t.ID, err)
		}
	}
	return nil
}

// PrivacySettings returns the settings in effect
func (m *SessionManager) PrivacySettings() PrivacySettings {
	return m.settings
}

// History returns the shared history store
func (m *SessionManager) History() *HistoryStore {
	return m.history
}

// ClearHistory empties the history
func (m *SessionManager) ClearHistory() error {
	err := m.history.Clear()
	m.metrics.SetHistoryItems(m.history.Len())
	return err
}

// Len returns the number of open tabs
func (m *SessionManager) Len() int {
	return len(m.sessions)
}

// ActiveIndex returns the index of the active tab
func (m *SessionManager) ActiveIndex() int {
	return m.active
}

// CurrentAddress returns the display address of the active tab
func (m *SessionManager) CurrentAddress() string {
	return m.currentAddress
}

// Tabs returns copies of the open tabs in display order
func (m *SessionManager) Tabs() []TabSession {
	tabs := make([]TabSession, len(m.sessions))
	for i, t := range m.sessions {
		tabs[i] = *t
		tabs[i].cancelFavicon = nil
	}
	return tabs
}

// Tab returns a copy of the tab with the given id
func (m *SessionManager) Tab(id SessionID) (TabSession, bool) {
	t := m.findByID(id)
	if t == nil {
		return TabSession{}, false
	}
	c := *t
	c.cancelFavicon = nil
	return c, true
}

// ActiveTab returns a copy of the active tab
func (m *SessionManager) ActiveTab() TabSession {
	c := *m.sessions[m.active]
	c.cancelFavicon = nil
	return c
}

func (m *SessionManager) findByID(id SessionID) *TabSession {
	for _, t := range m.sessions {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (m *SessionManager) findByHandle(h Handle) *TabSession {
	for _, t := range m.sessions {
		if t.Handle == h {
			return t
		}
	}
	return nil
}

func (m *SessionManager) persistTabs() {
	records := make([]TabRecord, len(m.sessions))
	for i, t := range m.sessions {
		records[i] = t.Record()
	}
	if err := SaveTabSnapshot(m.kv, records); err != nil {
		LogWarn("Failed to save tab snapshot: %v", err)
	}
}
