package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/singleflight"
)

const (
	faviconUserAgent = "Andromeda/1.0"
	maxFaviconBytes  = 1 << 20

	faviconDiscoveryScript = `(() => {
	const link = document.querySelector("link[rel~='icon']");
	return link ? link.href : "";
})()`
)

var errNotAnImage = errors.New("payload is not an image")

// FaviconRequest identifies the page whose icon is wanted
type FaviconRequest struct {
	Handle      Handle
	PageAddress string
}

// FaviconResolver finds and downloads site icons. It is safe for
// concurrent use; lookups of the same icon URL share one download.
type FaviconResolver struct {
	engine  Engine
	client  *resty.Client
	cache   *FaviconCache
	metrics *Metrics
	group   singleflight.Group
}

// NewFaviconResolver creates a resolver. engine, cache and metrics may be nil.
func NewFaviconResolver(engine Engine, cache *FaviconCache, metrics *Metrics, timeout time.Duration) *FaviconResolver {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil

	// retries happen in the retryablehttp round tripper, not in resty
	client := resty.New()
	client.
		SetTimeout(timeout).
		SetHeader("User-Agent", faviconUserAgent).
		SetHeader("DNT", "1")
	client.SetTransport(retryClient.StandardClient().Transport)

	return &FaviconResolver{
		engine:  engine,
		client:  client,
		cache:   cache,
		metrics: metrics,
	}
}

// Resolve returns the icon bytes for the page in req
func (r *FaviconResolver) Resolve(ctx context.Context, req FaviconRequest) ([]byte, error) {
	page, err := url.Parse(req.PageAddress)
	if err != nil || (page.Scheme != "http" && page.Scheme != "https") || page.Host == "" {
		return nil, &FaviconError{URL: req.PageAddress, Err: fmt.Errorf("unsupported page address")}
	}

	iconURL := r.discover(ctx, req.Handle, page)
	v, err, shared := r.group.Do(iconURL, func() (interface{}, error) {
		return r.fetch(ctx, iconURL)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		LogDebug("Shared favicon download for %s", iconURL)
	}
	return v.([]byte), nil
}

// discover asks the page for its declared icon, then reads the page HTML,
// then falls back to /favicon.ico
func (r *FaviconResolver) discover(ctx context.Context, h Handle, page *url.URL) string {
	if r.engine != nil && h != "" {
		href, err := r.engine.EvaluateScript(ctx, h, faviconDiscoveryScript)
		if err == nil {
			if icon, ok := resolveIconHref(page, href); ok {
				return icon
			}
		} else {
			LogDebug("Favicon discovery script failed: %v", err)
		}
	}

	if href, err := r.linkFromHTML(ctx, page.String()); err == nil {
		if icon, ok := resolveIconHref(page, href); ok {
			return icon
		}
	} else {
		LogDebug("Favicon HTML lookup for %s failed: %v", page, err)
	}

	return page.ResolveReference(&url.URL{Path: "/favicon.ico"}).String()
}

func (r *FaviconResolver) linkFromHTML(ctx context.Context, pageURL string) (string, error) {
	resp, err := r.client.R().SetContext(ctx).SetHeader("Accept", "text/html").Get(pageURL)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	href, ok := doc.Find("link[rel~='icon']").First().Attr("href")
	if !ok {
		return "", fmt.Errorf("no icon link")
	}
	return href, nil
}

func resolveIconHref(page *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	icon := page.ResolveReference(ref)
	if icon.Scheme != "http" && icon.Scheme != "https" {
		return "", false
	}
	return icon.String(), true
}

func (r *FaviconResolver) fetch(ctx context.Context, iconURL string) ([]byte, error) {
	if r.cache != nil {
		if data, ok := r.cache.Get(iconURL); ok {
			r.metrics.RecordFaviconFetch("cache")
			return data, nil
		}
	}

	resp, err := r.client.R().SetContext(ctx).SetHeader("Accept", "image/*").Get(iconURL)
	if err != nil {
		r.metrics.RecordFaviconFetch("error")
		return nil, &FaviconError{URL: iconURL, Err: err}
	}
	if resp.IsError() {
		r.metrics.RecordFaviconFetch("error")
		return nil, &FaviconError{URL: iconURL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode())}
	}

	data := resp.Body()
	if len(data) == 0 || len(data) > maxFaviconBytes {
		r.metrics.RecordFaviconFetch("error")
		return nil, &FaviconError{URL: iconURL, Err: fmt.Errorf("icon size %d out of range", len(data))}
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		r.metrics.RecordFaviconFetch("error")
		return nil, &FaviconError{URL: iconURL, Err: fmt.Errorf("%w: %s", errNotAnImage, mtype.String())}
	}

	if r.cache != nil {
		if err := r.cache.Put(iconURL, mtype.String(), data); err != nil {
			LogWarn("Failed to cache favicon %s: %v", iconURL, err)
		}
	}
	r.metrics.RecordFaviconFetch("fetched")
	return data, nil
}
