package internal

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/withandromeda/andromeda/testutil"
)

var (
	pngIcon = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x10\x00\x00\x00\x10\x08\x06\x00\x00\x00")
	icoIcon = []byte("\x00\x00\x01\x00\x01\x00\x10\x10\x00\x00\x01\x00\x20\x00")
)

type iconSite struct {
	*httptest.Server
	iconHits atomic.Int32
}

// newIconSite serves page at directory paths and body at every other path
func newIconSite(t *testing.T, page string, body []byte) *iconSite {
	t.Helper()
	site := &iconSite{}
	site.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(page))
			return
		}
		if body == nil {
			http.NotFound(w, r)
			return
		}
		site.iconHits.Add(1)
		_, _ = w.Write(body)
	}))
	t.Cleanup(site.Close)
	return site
}

func TestFaviconResolver_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		page    string
		body    []byte
		want    []byte
		wantErr error
	}{
		{
			name: "declared icon link",
			page: `<html><head><link rel="shortcut icon" href="/static/icon.png"></head></html>`,
			body: pngIcon,
			want: pngIcon,
		},
		{
			name: "favicon.ico fallback",
			page: `<html><head><title>No icon</title></head></html>`,
			body: icoIcon,
			want: icoIcon,
		},
		{
			name:    "payload is not an image",
			page:    `<html></html>`,
			body:    []byte("hello, this is plain text"),
			wantErr: errNotAnImage,
		},
		{
			name: "missing icon",
			page: `<html></html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := newIconSite(t, tt.page, tt.body)
			metrics := NewMetrics()
			r := NewFaviconResolver(nil, nil, metrics, 5*time.Second)

			got, err := r.Resolve(context.Background(), FaviconRequest{PageAddress: site.URL + "/"})
			if tt.want == nil {
				if err == nil {
					t.Fatalf("Resolve() = %v, want error", got)
				}
				var favErr *FaviconError
				if !errors.As(err, &favErr) {
					t.Errorf("Resolve() error = %T, want *FaviconError", err)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				if metrics.Snapshot().FaviconFetches["error"] != 1 {
					t.Errorf("fetches = %v", metrics.Snapshot().FaviconFetches)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
			if metrics.Snapshot().FaviconFetches["fetched"] != 1 {
				t.Errorf("fetches = %v", metrics.Snapshot().FaviconFetches)
			}
		})
	}
}

func TestFaviconResolver_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			_, _ = w.Write([]byte(`<link rel="icon" href="/flaky.png">`))
			return
		}
		if attempts.Add(1) == 1 {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(pngIcon)
	}))
	defer srv.Close()

	r := NewFaviconResolver(nil, nil, nil, 5*time.Second)
	got, err := r.Resolve(context.Background(), FaviconRequest{PageAddress: srv.URL + "/"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !bytes.Equal(got, pngIcon) {
		t.Errorf("Resolve() = %q", got)
	}
	if n := attempts.Load(); n != 2 {
		t.Errorf("icon requested %d times, want 2", n)
	}
}

func TestFaviconResolver_UnsupportedPage(t *testing.T) {
	r := NewFaviconResolver(nil, nil, nil, time.Second)
	for _, address := range []string{"", "about:blank", "file:///etc/hosts", "https://"} {
		if _, err := r.Resolve(context.Background(), FaviconRequest{PageAddress: address}); err == nil {
			t.Errorf("Resolve(%q) should fail", address)
		}
	}
}

func TestFaviconResolver_Cache(t *testing.T) {
	site := newIconSite(t, `<link rel="icon" href="/i.png">`, pngIcon)
	cache := NewFaviconCache(testutil.CreateTempDir(t), time.Hour)
	metrics := NewMetrics()
	r := NewFaviconResolver(nil, cache, metrics, 5*time.Second)

	for i := 0; i < 2; i++ {
		got, err := r.Resolve(context.Background(), FaviconRequest{PageAddress: site.URL + "/"})
		if err != nil || !bytes.Equal(got, pngIcon) {
			t.Fatalf("Resolve() #%d = %q, %v", i, got, err)
		}
	}

	if hits := site.iconHits.Load(); hits != 1 {
		t.Errorf("icon downloaded %d times, want 1", hits)
	}
	snap := metrics.Snapshot()
	if snap.FaviconFetches["fetched"] != 1 || snap.FaviconFetches["cache"] != 1 {
		t.Errorf("fetches = %v", snap.FaviconFetches)
	}
	if cache.Len() != 1 {
		t.Errorf("cache.Len() = %d", cache.Len())
	}
}

func TestFaviconResolver_EngineDiscovery(t *testing.T) {
	site := newIconSite(t, `<link rel="icon" href="/from-html.png">`, pngIcon)
	engine := NewFakeEngine()
	engine.ScriptFunc = func(_ Handle, script string) (string, error) {
		if !strings.Contains(script, "link[rel~='icon']") {
			return "", errors.New("unexpected script")
		}
		return "/from-script.png", nil
	}
	h, _ := engine.CreateInstance(EngineConfig{JavaScriptEnabled: true})

	r := NewFaviconResolver(engine, nil, nil, 5*time.Second)
	page := mustParseURL(t, site.URL+"/docs/")
	if got := r.discover(context.Background(), h, page); got != site.URL+"/from-script.png" {
		t.Errorf("discover() = %q", got)
	}

	engine.ScriptFunc = func(Handle, string) (string, error) { return "", nil }
	if got := r.discover(context.Background(), h, page); got != site.URL+"/from-html.png" {
		t.Errorf("discover() without a declared link = %q", got)
	}
}

func TestResolveIconHref(t *testing.T) {
	page := mustParseURL(t, "https://a.test/docs/page.html")
	tests := []struct {
		href   string
		want   string
		wantOK bool
	}{
		{"/favicon.png", "https://a.test/favicon.png", true},
		{"icon.svg", "https://a.test/docs/icon.svg", true},
		{"//cdn.test/i.ico", "https://cdn.test/i.ico", true},
		{"  https://b.test/x.png  ", "https://b.test/x.png", true},
		{"", "", false},
		{"data:image/png;base64,AAAA", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			got, ok := resolveIconHref(page, tt.href)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("resolveIconHref(%q) = %q, %v; want %q, %v", tt.href, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}
