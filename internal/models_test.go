package internal

import "testing"

func TestTabStateString(t *testing.T) {
	tests := []struct {
		state TabState
		want  string
	}{
		{TabCreated, "created"},
		{TabLoading, "loading"},
		{TabLoaded, "loaded"},
		{TabFailed, "failed"},
		{TabState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("TabState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestEventKindString(t *testing.T) {
	kinds := map[EventKind]string{
		EventNavigationFinished: "navigation-finished",
		EventNavigationFailed:   "navigation-failed",
		EventTitleChanged:       "title-changed",
		EventFaviconResolved:    "favicon-resolved",
		EventKind(0):            "unknown",
	}
	for k, want := range kinds {
		if got := k.String(); got != want {
			t.Errorf("EventKind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestEffectivePolicy_EngineConfig(t *testing.T) {
	p := EffectivePolicy{JavaScriptEnabled: false, ThirdPartyCookiesAllowed: true}
	cfg := p.EngineConfig()
	if cfg.JavaScriptEnabled || !cfg.ThirdPartyCookiesAllowed {
		t.Errorf("EngineConfig() = %+v", cfg)
	}
}

func TestEditCommandValid(t *testing.T) {
	for _, cmd := range []EditCommand{EditCopy, EditCut, EditPaste, EditSelectAll} {
		if !cmd.Valid() {
			t.Errorf("%q should be valid", cmd)
		}
	}
	for _, cmd := range []EditCommand{"", "undo", "COPY"} {
		if cmd.Valid() {
			t.Errorf("%q should be invalid", cmd)
		}
	}
}

func TestHostOf(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"https://Go.Dev/doc", "go.dev"},
		{"http://localhost:8080/x", "localhost"},
		{"", ""},
		{"%zz", ""},
	}
	for _, tt := range tests {
		if got := hostOf(tt.address); got != tt.want {
			t.Errorf("hostOf(%q) = %q, want %q", tt.address, got, tt.want)
		}
	}
}
