package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mmcdole/gofeed"

	"feedmail/internal/storage"
)

const defaultUserAgent = "feedmail/1.0 (feed-to-email forwarder)"

// FetchError is a per-feed, recoverable failure: the orchestrator records
// it against the feed and moves on to the next one.
type FetchError struct {
	Feed string
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s (%s): %v", e.Feed, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetchResult carries one fetch's entries plus the HTTP caching metadata to
// persist for the next conditional request.
type FetchResult struct {
	Title          string
	Entries        []*Entry
	PublisherName  string
	PublisherEmail string
	ETag           string
	LastModified   string
	// NotModified is set on a 304; Entries is empty and the stored state
	// is still current.
	NotModified bool
	// PermanentURL is the feed's new location after a permanent redirect,
	// or empty when the configured URL is still good.
	PermanentURL string
}

// Fetcher retrieves and parses feeds over HTTP. Transient failures are
// retried with capped exponential backoff before being reported.
type Fetcher struct {
	client     *http.Client
	parser     *gofeed.Parser
	userAgent  string
	maxRetries uint64
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:     &http.Client{Timeout: timeout},
		parser:     gofeed.NewParser(),
		userAgent:  defaultUserAgent,
		maxRetries: 2,
	}
}

// SetUserAgent overrides the User-Agent header sent with requests.
func (f *Fetcher) SetUserAgent(ua string) {
	if ua != "" {
		f.userAgent = ua
	}
}

// Fetch performs a conditional GET using the etag/last-modified recorded in
// state and parses the response into entries in feed-delivery order.
func (f *Fetcher) Fetch(ctx context.Context, cfg *storage.FeedConfig, state *storage.FeedState) (*FetchResult, error) {
	var result *FetchResult
	op := func() error {
		res, err := f.fetchOnce(ctx, cfg, state)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, &FetchError{Feed: cfg.Name, URL: cfg.URL, Err: err}
	}
	return result, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, cfg *storage.FeedConfig, state *storage.FeedState) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")
	if state.ETag != "" {
		req.Header.Set("If-None-Match", state.ETag)
	}
	if state.LastModified != "" {
		req.Header.Set("If-Modified-Since", state.LastModified)
	}

	// A fresh client per request so the redirect hook can record permanent
	// moves for this fetch only.
	var permanentURL string
	client := *f.client
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if req.Response != nil {
			switch req.Response.StatusCode {
			case http.StatusMovedPermanently, http.StatusPermanentRedirect:
				permanentURL = req.URL.String()
			}
		}
		return nil
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return &FetchResult{NotModified: true}, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, backoff.Permanent(fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parsing feed: %w", err))
	}

	result := &FetchResult{
		Title:        parsed.Title,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		PermanentURL: permanentURL,
	}
	if len(parsed.Authors) > 0 {
		result.PublisherName = parsed.Authors[0].Name
		result.PublisherEmail = parsed.Authors[0].Email
	} else if parsed.Author != nil {
		result.PublisherName = parsed.Author.Name
		result.PublisherEmail = parsed.Author.Email
	}
	for _, item := range parsed.Items {
		result.Entries = append(result.Entries, fromItem(item))
	}
	return result, nil
}
