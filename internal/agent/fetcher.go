package agent

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPFetcher performs real network requests for the agent. Responses from
// the configured origin (and origin-relative paths) are marked same-origin;
// everything else is treated as opaque and never cached.
type HTTPFetcher struct {
	Client *http.Client
	Origin string
}

// NewHTTPFetcher creates a fetcher rooted at the given origin, e.g.
// "https://app.example.com".
func NewHTTPFetcher(origin string) *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{Timeout: 30 * time.Second},
		Origin: strings.TrimRight(origin, "/"),
	}
}

// Fetch performs the request and returns a response suitable for caching.
func (f *HTTPFetcher) Fetch(ctx context.Context, method, rawurl string) (*CachedResponse, error) {
	sameOrigin := true
	target := rawurl
	if strings.HasPrefix(rawurl, "/") {
		target = f.Origin + rawurl
	} else {
		reqURL, err := url.Parse(rawurl)
		if err != nil {
			return nil, fmt.Errorf("parsing fetch url %q: %w", rawurl, err)
		}
		originURL, err := url.Parse(f.Origin)
		if err != nil {
			return nil, fmt.Errorf("parsing origin %q: %w", f.Origin, err)
		}
		sameOrigin = reqURL.Scheme == originURL.Scheme && reqURL.Host == originURL.Host
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building fetch request for %q: %w", rawurl, err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", rawurl, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body of %q: %w", rawurl, err)
	}

	return &CachedResponse{
		Status:     resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		SameOrigin: sameOrigin,
	}, nil
}

// LogNotifier is the default Notifier for environments without a display
// surface; it records what would have been shown.
type LogNotifier struct{}

func (LogNotifier) Show(_ context.Context, n Notification) error {
	log.Printf("notification [%s]: %s: %s", n.Tag, n.Title, n.Body)
	return nil
}

func (LogNotifier) Close(_ context.Context, tag string) error {
	log.Printf("notification [%s]: dismissed", tag)
	return nil
}

// NoopClients is the default ClientController when no window manager exists.
type NoopClients struct{}

func (NoopClients) Claim(context.Context) error { return nil }

func (NoopClients) FocusOrOpen(context.Context, string) error { return nil }
