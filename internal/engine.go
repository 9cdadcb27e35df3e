package internal

import "context"

// Handle refers to one engine instance. It is owned by exactly one tab.
type Handle string

// EngineConfig is the privacy configuration of an engine instance
type EngineConfig struct {
	JavaScriptEnabled        bool
	ThirdPartyCookiesAllowed bool
}

// Navigation is a load request. Seq is echoed back on the completion event.
type Navigation struct {
	Seq     uint64
	URL     string
	Headers map[string]string
}

// NavigationHeaders are sent with every load
func NavigationHeaders() map[string]string {
	return map[string]string{"DNT": "1"}
}

// Reporter receives asynchronous engine completions. Post may be called
// from any goroutine.
type Reporter interface {
	Post(Event)
}

// Engine is the page-rendering collaborator. Load, Reload, GoBack and
// GoForward return once the request is issued; the outcome arrives later
// through the bound Reporter as a NavigationFinished or NavigationFailed
// event carrying the same Seq.
type Engine interface {
	Bind(r Reporter)

	CreateInstance(cfg EngineConfig) (Handle, error)
	Configure(h Handle, cfg EngineConfig) error
	Destroy(h Handle)

	Load(h Handle, nav Navigation) error
	Reload(h Handle, seq uint64) error
	GoBack(h Handle, seq uint64) error
	GoForward(h Handle, seq uint64) error

	CanGoBack(h Handle) bool
	CanGoForward(h Handle) bool
	CurrentAddress(h Handle) string
	CurrentTitle(h Handle) string

	// EvaluateScript is used for in-page find and favicon discovery only.
	// It may be called off the manager's loop.
	EvaluateScript(ctx context.Context, h Handle, script string) (string, error)
	EditCommand(h Handle, cmd EditCommand) error
}

// EditCommand is a clipboard or selection command forwarded to the page
type EditCommand string

const (
	EditCopy      EditCommand = "copy"
	EditCut       EditCommand = "cut"
	EditPaste     EditCommand = "paste"
	EditSelectAll EditCommand = "selectAll"
)

// Valid reports whether c is a known command
func (c EditCommand) Valid() bool {
	switch c {
	case EditCopy, EditCut, EditPaste, EditSelectAll:
		return true
	}
	return false
}
