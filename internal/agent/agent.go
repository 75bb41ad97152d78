package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"webpush-backend/config"
)

// State is the agent's lifecycle position. An agent only serves requests once
// it reaches StateActive; a newer generation starts over at StateInstalling.
type State int

const (
	StateInstalling State = iota
	StateWaiting
	StateActivating
	StateActive
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateWaiting:
		return "waiting"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	}
	return "unknown"
}

// ErrNotActive is returned when a fetch arrives before activation completed.
var ErrNotActive = errors.New("agent is not active yet")

// Fetcher performs the network leg of a fetch-intercept.
type Fetcher interface {
	Fetch(ctx context.Context, method, url string) (*CachedResponse, error)
}

// Action is one button attached to a displayed notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Notification is the ephemeral payload handed to the platform display call.
type Notification struct {
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Icon    string         `json:"icon,omitempty"`
	Badge   string         `json:"badge,omitempty"`
	Tag     string         `json:"tag,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Actions []Action       `json:"actions,omitempty"`
}

// Notifier raises and dismisses system notifications.
type Notifier interface {
	Show(ctx context.Context, n Notification) error
	Close(ctx context.Context, tag string) error
}

// ClientController claims open clients for this agent generation and brings a
// client window to the foreground after a notification click.
type ClientController interface {
	Claim(ctx context.Context) error
	FocusOrOpen(ctx context.Context, url string) error
}

// Agent drives the install/activate/fetch/push/click lifecycle for one
// generation. Every asynchronous side effect runs under an explicit lifetime
// hold; Shutdown blocks until the holds drain.
type Agent struct {
	generation string
	scriptPath string
	precache   []string
	cacheable  []string
	tag        string

	cache    *CacheStore
	fetcher  Fetcher
	notifier Notifier
	clients  ClientController

	mu    sync.Mutex
	state State
	holds sync.WaitGroup
}

// New creates an agent in the installing state.
func New(cfg *config.AgentConfig, cache *CacheStore, fetcher Fetcher, notifier Notifier, clients ClientController) *Agent {
	return &Agent{
		generation: cfg.Generation,
		scriptPath: cfg.ScriptPath,
		precache:   cfg.PrecacheAssets,
		cacheable:  cfg.CacheablePaths,
		tag:        cfg.NotificationTag,
		cache:      cache,
		fetcher:    fetcher,
		notifier:   notifier,
		clients:    clients,
		state:      StateInstalling,
	}
}

// State returns the agent's current lifecycle state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Generation returns the cache generation this agent owns.
func (a *Agent) Generation() string {
	return a.generation
}

// Install pre-populates the generation cache with the critical-asset
// manifest. Caching is advisory: a failed asset is logged and skipped, never
// fatal. The agent then requests activation-skip, so it does not wait for
// existing clients to close.
func (a *Agent) Install(ctx context.Context) {
	defer a.contain("install")
	// skip-waiting: the new generation proceeds straight to activation
	// eligibility instead of idling behind open clients. Deferred so that a
	// panicking precache step cannot strand the agent in installing.
	defer a.setState(StateWaiting)

	gen := a.cache.Generation(a.generation)
	for _, asset := range a.precache {
		resp, err := a.fetcher.Fetch(ctx, http.MethodGet, asset)
		if err != nil {
			log.Printf("agent %s: precache of %s failed: %v", a.generation, asset, err)
			continue
		}
		if resp.Status != http.StatusOK {
			log.Printf("agent %s: precache of %s returned status %d, skipping", a.generation, asset, resp.Status)
			continue
		}
		gen.Put(requestKey(http.MethodGet, asset), resp)
	}
}

// Activate removes every cache generation other than this agent's, then
// claims all open clients so they are served without a reload. No fetch is
// serviced before this completes.
func (a *Agent) Activate(ctx context.Context) {
	defer a.contain("activate")

	a.setState(StateActivating)
	// Activation always terminates. A panicking collaborator is contained
	// above, and must not leave the agent stuck in activating with fetches
	// rejected forever.
	defer a.setState(StateActive)

	purged := a.cache.PurgeExcept(a.generation)
	if len(purged) > 0 {
		log.Printf("agent %s: purged stale cache generations %v", a.generation, purged)
	}

	if err := a.clients.Claim(ctx); err != nil {
		log.Printf("agent %s: client claim failed: %v", a.generation, err)
	}
}

// HandleFetch services one intercepted request. Cache hits never touch the
// network; misses perform exactly one network fetch and store a copy when the
// response is a successful, same-origin, allow-listed GET. Network failure
// with no cache entry degrades to a synthesized offline response.
func (a *Agent) HandleFetch(ctx context.Context, method, url string) (*CachedResponse, error) {
	if a.State() != StateActive {
		return nil, ErrNotActive
	}

	// Requests for the agent's own script must pass through untouched to
	// avoid a self-referential intercept loop.
	if method != http.MethodGet || strings.Contains(url, a.scriptPath) {
		return a.passthrough(ctx, method, url)
	}

	gen := a.cache.Generation(a.generation)
	key := requestKey(method, url)
	if cached, ok := gen.Get(key); ok {
		return cached, nil
	}

	resp, err := a.fetcher.Fetch(ctx, method, url)
	if err != nil {
		log.Printf("agent %s: network fetch of %s failed with no cache entry: %v", a.generation, url, err)
		return offlineResponse(), nil
	}

	if resp.Status == http.StatusOK && resp.SameOrigin && a.isCacheable(url) {
		gen.Put(key, resp)
	}
	return resp, nil
}

func (a *Agent) passthrough(ctx context.Context, method, url string) (*CachedResponse, error) {
	resp, err := a.fetcher.Fetch(ctx, method, url)
	if err != nil {
		return offlineResponse(), nil
	}
	return resp, nil
}

// isCacheable reports whether the request path matches the allow-list. A
// prefix entry ending in "/" matches a subtree; anything else must match the
// path exactly.
func (a *Agent) isCacheable(url string) bool {
	path := url
	if i := strings.Index(url, "://"); i >= 0 {
		rest := url[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			path = rest[j:]
		} else {
			path = "/"
		}
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	for _, allowed := range a.cacheable {
		if strings.HasSuffix(allowed, "/") && allowed != "/" {
			if strings.HasPrefix(path, allowed) {
				return true
			}
		} else if path == allowed {
			return true
		}
	}
	return false
}

func offlineResponse() *CachedResponse {
	return &CachedResponse{
		Status:     http.StatusServiceUnavailable,
		Header:     http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:       []byte("offline"),
		SameOrigin: true,
	}
}

// pushPayload is the untrusted shape of an inbound push event body. Every
// field is validated or defaulted; a missing or garbled body must not crash
// the handler.
type pushPayload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon"`
	Badge string         `json:"badge"`
	Data  map[string]any `json:"data"`
}

// HandlePush parses the inbound push event and raises a system notification
// under the agent's fixed tag, so repeated pushes replace rather than stack.
// The display call runs under a lifetime hold.
func (a *Agent) HandlePush(ctx context.Context, body []byte) {
	var payload pushPayload
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			log.Printf("agent %s: unreadable push payload, using defaults: %v", a.generation, err)
		}
	}
	if payload.Title == "" {
		payload.Title = "Notification"
	}
	if payload.Body == "" {
		payload.Body = "You have a new notification."
	}

	a.waitUntil("push display", func() error {
		return a.notifier.Show(ctx, Notification{
			Title: payload.Title,
			Body:  payload.Body,
			Icon:  payload.Icon,
			Badge: payload.Badge,
			Tag:   a.tag,
			Data:  payload.Data,
		})
	})
}

// HandleNotificationClick dismisses the displayed notification and brings an
// existing client window to focus, or opens a new one at the application
// root. Both steps run under a lifetime hold.
func (a *Agent) HandleNotificationClick(ctx context.Context) {
	a.waitUntil("notification click", func() error {
		if err := a.notifier.Close(ctx, a.tag); err != nil {
			log.Printf("agent %s: closing notification failed: %v", a.generation, err)
		}
		return a.clients.FocusOrOpen(ctx, "/")
	})
}

// waitUntil registers a lifetime hold and runs fn under it. Failures are
// logged and absorbed; the agent itself must survive every handler error.
func (a *Agent) waitUntil(op string, fn func() error) {
	a.holds.Add(1)
	go func() {
		defer a.holds.Done()
		defer a.contain(op)
		if err := fn(); err != nil {
			log.Printf("agent %s: %s failed: %v", a.generation, op, err)
		}
	}()
}

// contain converts a panic in a handler into a logged warning. An escaped
// panic would abort lifecycle progression, which is never acceptable here.
func (a *Agent) contain(op string) {
	if r := recover(); r != nil {
		log.Printf("agent %s: panic during %s contained: %v", a.generation, op, r)
	}
}

// Shutdown waits for all outstanding lifetime holds to resolve.
func (a *Agent) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.holds.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("agent %s: holds still pending at shutdown: %w", a.generation, ctx.Err())
	}
}
