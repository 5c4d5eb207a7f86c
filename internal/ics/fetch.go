package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	appLog "groovecal/internal/log"
)

// MaxFeedBytes bounds a downloaded feed.
const MaxFeedBytes = 8 << 20

// Fetcher downloads published feeds, e.g. to check what a running server
// serves. Credentials in the URL are sent as HTTP Basic Auth.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a Fetcher with a request timeout. A zero timeout
// selects 15 seconds.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads the feed at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, errors.New("feed URL is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", ContentType)

	appLog.Debug("ics fetch start", "url", redactURL(rawURL))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", redactURL(rawURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", redactURL(rawURL), resp.Status)
	}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && mt != "text/calendar" {
		appLog.Info("ics fetch: unexpected content type", "url", redactURL(rawURL), "content_type", mt)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFeedBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", redactURL(rawURL), err)
	}
	if len(body) > MaxFeedBytes {
		return nil, fmt.Errorf("fetch %s: feed larger than %d bytes", redactURL(rawURL), MaxFeedBytes)
	}

	appLog.Debug("ics fetch success", "url", redactURL(rawURL), "bytes", len(body))
	return body, nil
}

// redactURL keeps only the scheme and host of a feed URL for logging; feed
// paths carry user IDs and the URL may carry credentials.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
