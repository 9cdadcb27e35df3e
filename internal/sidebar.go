package internal

import (
	"sync"
	"time"
)

// DefaultSidebarHideDelay is how long the sidebar stays up after the pointer leaves
const DefaultSidebarHideDelay = 500 * time.Millisecond

// SidebarState is the visibility of the navigation sidebar
type SidebarState int

const (
	SidebarHidden SidebarState = iota
	SidebarTransient
	SidebarPinned
)

func (s SidebarState) String() string {
	switch s {
	case SidebarHidden:
		return "hidden"
	case SidebarTransient:
		return "transient"
	case SidebarPinned:
		return "pinned"
	}
	return "unknown"
}

// Visible reports whether the sidebar is shown
func (s SidebarState) Visible() bool {
	return s != SidebarHidden
}

type stopper interface {
	Stop() bool
}

// SidebarController drives sidebar visibility from hover and pin events.
// Only the pinned flag is persisted.
type SidebarController struct {
	mu         sync.Mutex
	kv         KVStore
	state      SidebarState
	delay      time.Duration
	pending    stopper
	generation uint64
	onChange   func(SidebarState)
	closed     bool

	afterFunc func(d time.Duration, f func()) stopper
}

// NewSidebarController restores the pinned flag from kv. A delay <= 0 uses
// DefaultSidebarHideDelay.
func NewSidebarController(kv KVStore, delay time.Duration) *SidebarController {
	if delay <= 0 {
		delay = DefaultSidebarHideDelay
	}
	c := &SidebarController{
		kv:    kv,
		delay: delay,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
	var pinned bool
	if kv != nil && loadRecord(kv, KeySidebarPinned, &pinned) && pinned {
		c.state = SidebarPinned
	}
	return c
}

// OnChange sets the function called after every state change. It runs on
// the goroutine that caused the change, which for a delayed hide is the
// timer's goroutine.
func (c *SidebarController) OnChange(fn func(SidebarState)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// State returns the current visibility
func (c *SidebarController) State() SidebarState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Delay returns the hide debounce interval
func (c *SidebarController) Delay() time.Duration {
	return c.delay
}

// TogglePin pins a hidden sidebar and hides a visible one
func (c *SidebarController) TogglePin() SidebarState {
	c.mu.Lock()
	c.cancelPendingLocked()
	next := SidebarPinned
	if c.state.Visible() {
		next = SidebarHidden
	}
	fn := c.setLocked(next)
	kv := c.kv
	c.mu.Unlock()

	if kv != nil {
		if err := saveRecord(kv, KeySidebarPinned, next == SidebarPinned); err != nil {
			LogWarn("Failed to save sidebar state: %v", err)
		}
	}
	if fn != nil {
		fn(next)
	}
	return next
}

// OnPointerEnter shows an unpinned sidebar and cancels a pending hide
func (c *SidebarController) OnPointerEnter() {
	c.mu.Lock()
	if c.closed || c.state == SidebarPinned {
		c.mu.Unlock()
		return
	}
	c.cancelPendingLocked()
	fn := c.setLocked(SidebarTransient)
	c.mu.Unlock()
	if fn != nil {
		fn(SidebarTransient)
	}
}

// OnPointerLeave schedules hiding a transient sidebar after the delay
func (c *SidebarController) OnPointerLeave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state != SidebarTransient {
		return
	}
	c.cancelPendingLocked()
	gen := c.generation
	c.pending = c.afterFunc(c.delay, func() { c.hide(gen) })
}

// Close cancels any pending hide
func (c *SidebarController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cancelPendingLocked()
}

func (c *SidebarController) hide(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.generation || c.state != SidebarTransient {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	fn := c.setLocked(SidebarHidden)
	c.mu.Unlock()
	if fn != nil {
		fn(SidebarHidden)
	}
}

// cancelPendingLocked stops the hide timer; a timer that already fired
// sees a newer generation and does nothing
func (c *SidebarController) cancelPendingLocked() {
	c.generation++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

func (c *SidebarController) setLocked(s SidebarState) func(SidebarState) {
	if c.state == s {
		return nil
	}
	c.state = s
	return c.onChange
}
