package internal

// EventKind identifies an asynchronous completion
type EventKind int

const (
	EventNavigationFinished EventKind = iota + 1
	EventNavigationFailed
	EventTitleChanged
	EventFaviconResolved
)

func (k EventKind) String() string {
	switch k {
	case EventNavigationFinished:
		return "navigation-finished"
	case EventNavigationFailed:
		return "navigation-failed"
	case EventTitleChanged:
		return "title-changed"
	case EventFaviconResolved:
		return "favicon-resolved"
	}
	return "unknown"
}

// Event is a completion posted to the manager's loop. Engines fill Handle;
// work started by the manager itself fills SessionID.
type Event struct {
	Handle    Handle
	SessionID SessionID
	Seq       uint64
	Kind      EventKind
	Address   string
	Title     string
	Favicon   []byte
	Err       error
}

// ChangeKind describes what a subscriber is being told about
type ChangeKind int

const (
	// ChangeTabs: a tab was added or removed
	ChangeTabs ChangeKind = iota + 1
	// ChangeSelection: the active tab changed
	ChangeSelection
	// ChangeTab: address, title, favicon, state or back/forward flags of one tab
	ChangeTab
	// ChangeCurrentAddress: the address shown for the active tab changed
	ChangeCurrentAddress
)

// Change is delivered to subscribers on the manager's loop goroutine
type Change struct {
	Kind      ChangeKind
	SessionID SessionID
}
