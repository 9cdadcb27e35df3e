package internal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// FakeEngine is a scriptable in-memory Engine. Completions are only
// reported when the test calls Finish or Fail, unless AutoFinish is set.
type FakeEngine struct {
	mu        sync.Mutex
	reporter  Reporter
	next      int
	instances map[Handle]*FakeInstance
	destroyed []Handle

	// AutoFinish reports every load as finished immediately, titled after the host
	AutoFinish bool
	// CreateErr and LoadErr make the corresponding calls fail
	CreateErr error
	LoadErr   error
	// ScriptFunc answers EvaluateScript; nil returns ""
	ScriptFunc func(h Handle, script string) (string, error)
}

// FakeInstance records what one fake engine instance was asked to do
type FakeInstance struct {
	Config       EngineConfig
	Loads        []Navigation
	Reloads      int
	Backs        int
	Forwards     int
	Edits        []EditCommand
	Scripts      []string
	LastSeq      uint64
	Address      string
	Title        string
	CanGoBack    bool
	CanGoForward bool
}

// NewFakeEngine creates an empty fake engine
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{instances: make(map[Handle]*FakeInstance)}
}

func (e *FakeEngine) Bind(r Reporter) {
	e.mu.Lock()
	e.reporter = r
	e.mu.Unlock()
}

func (e *FakeEngine) CreateInstance(cfg EngineConfig) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.CreateErr != nil {
		return "", e.CreateErr
	}
	e.next++
	h := Handle(fmt.Sprintf("fake-%d", e.next))
	e.instances[h] = &FakeInstance{Config: cfg}
	return h, nil
}

func (e *FakeEngine) Configure(h Handle, cfg EngineConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, ok := e.instances[h]
	if !ok {
		return fmt.Errorf("unknown handle %s", h)
	}
	inst.Config = cfg
	return nil
}

func (e *FakeEngine) Destroy(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.instances, h)
	e.destroyed = append(e.destroyed, h)
}

func (e *FakeEngine) Load(h Handle, nav Navigation) error {
	e.mu.Lock()
	inst, ok := e.instances[h]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("unknown handle %s", h)
	}
	if e.LoadErr != nil {
		e.mu.Unlock()
		return e.LoadErr
	}
	inst.Loads = append(inst.Loads, nav)
	inst.LastSeq = nav.Seq
	auto, r := e.AutoFinish, e.reporter
	e.mu.Unlock()

	if auto && r != nil {
		title := nav.URL
		if u, err := url.Parse(nav.URL); err == nil && u.Host != "" {
			title = u.Host
		}
		e.report(h, nav.Seq, EventNavigationFinished, nav.URL, title, nil)
	}
	return nil
}

func (e *FakeEngine) step(h Handle, seq uint64, count func(*FakeInstance)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, ok := e.instances[h]
	if !ok {
		return fmt.Errorf("unknown handle %s", h)
	}
	count(inst)
	inst.LastSeq = seq
	return nil
}

func (e *FakeEngine) Reload(h Handle, seq uint64) error {
	return e.step(h, seq, func(i *FakeInstance) { i.Reloads++ })
}

func (e *FakeEngine) GoBack(h Handle, seq uint64) error {
	return e.step(h, seq, func(i *FakeInstance) { i.Backs++ })
}

func (e *FakeEngine) GoForward(h Handle, seq uint64) error {
	return e.step(h, seq, func(i *FakeInstance) { i.Forwards++ })
}

func (e *FakeEngine) CanGoBack(h Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if inst, ok := e.instances[h]; ok {
		return inst.CanGoBack
	}
	return false
}

func (e *FakeEngine) CanGoForward(h Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if inst, ok := e.instances[h]; ok {
		return inst.CanGoForward
	}
	return false
}

func (e *FakeEngine) CurrentAddress(h Handle) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if inst, ok := e.instances[h]; ok {
		return inst.Address
	}
	return ""
}

func (e *FakeEngine) CurrentTitle(h Handle) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if inst, ok := e.instances[h]; ok {
		return inst.Title
	}
	return ""
}

func (e *FakeEngine) EvaluateScript(ctx context.Context, h Handle, script string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	inst, ok := e.instances[h]
	if !ok {
		e.mu.Unlock()
		return "", fmt.Errorf("unknown handle %s", h)
	}
	inst.Scripts = append(inst.Scripts, script)
	fn := e.ScriptFunc
	e.mu.Unlock()
	if fn == nil {
		return "", nil
	}
	return fn(h, script)
}

func (e *FakeEngine) EditCommand(h Handle, cmd EditCommand) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, ok := e.instances[h]
	if !ok {
		return fmt.Errorf("unknown handle %s", h)
	}
	inst.Edits = append(inst.Edits, cmd)
	return nil
}

// Instance returns a copy of the record for h
func (e *FakeEngine) Instance(h Handle) (FakeInstance, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, ok := e.instances[h]
	if !ok {
		return FakeInstance{}, false
	}
	return *inst, true
}

// Live returns the number of instances not yet destroyed
func (e *FakeEngine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.instances)
}

// Destroyed returns the handles destroyed so far, in order
func (e *FakeEngine) Destroyed() []Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Handle(nil), e.destroyed...)
}

// SetHistory sets the back/forward flags reported for h
func (e *FakeEngine) SetHistory(h Handle, back, forward bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if inst, ok := e.instances[h]; ok {
		inst.CanGoBack = back
		inst.CanGoForward = forward
	}
}

// Finish reports the latest navigation of h as finished at address
func (e *FakeEngine) Finish(h Handle, address, title string) {
	e.mu.Lock()
	var seq uint64
	if inst, ok := e.instances[h]; ok {
		seq = inst.LastSeq
		inst.Address = address
		inst.Title = title
	}
	e.mu.Unlock()
	e.report(h, seq, EventNavigationFinished, address, title, nil)
}

// FinishSeq reports navigation seq of h as finished, stale or not
func (e *FakeEngine) FinishSeq(h Handle, seq uint64, address, title string) {
	e.report(h, seq, EventNavigationFinished, address, title, nil)
}

// Fail reports the latest navigation of h as failed
func (e *FakeEngine) Fail(h Handle, err error) {
	e.mu.Lock()
	var seq uint64
	if inst, ok := e.instances[h]; ok {
		seq = inst.LastSeq
	}
	e.mu.Unlock()
	if err == nil {
		err = errors.New("navigation failed")
	}
	e.report(h, seq, EventNavigationFailed, "", "", err)
}

// ChangeTitle reports a late title for the latest navigation of h
func (e *FakeEngine) ChangeTitle(h Handle, title string) {
	e.mu.Lock()
	var seq uint64
	if inst, ok := e.instances[h]; ok {
		seq = inst.LastSeq
		inst.Title = title
	}
	e.mu.Unlock()
	e.report(h, seq, EventTitleChanged, "", title, nil)
}

func (e *FakeEngine) report(h Handle, seq uint64, kind EventKind, address, title string, err error) {
	e.mu.Lock()
	r := e.reporter
	e.mu.Unlock()
	if r == nil {
		return
	}
	r.Post(Event{Handle: h, Seq: seq, Kind: kind, Address: address, Title: title, Err: err})
}

// MemoryStore is a KVStore held in a map
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
	PutErr error
	GetErr error
	Writes int
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return "", false, s.GetErr
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Put(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		return s.PutErr
	}
	s.values[key] = value
	s.Writes++
	return nil
}

// CreateTestHistoryItem creates a history item visited at ts
func CreateTestHistoryItem(id, title, address string, ts time.Time) HistoryItem {
	return HistoryItem{
		ID:        id,
		Title:     title,
		Address:   address,
		Timestamp: ts,
	}
}

// CreateTestSettings creates default settings holding rules
func CreateTestSettings(rules ...SiteRule) PrivacySettings {
	settings := DefaultPrivacySettings()
	settings.SiteRules = append(settings.SiteRules, rules...)
	return settings
}
