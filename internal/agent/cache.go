package agent

import (
	"net/http"
	"sync"

	"github.com/patrickmn/go-cache"
)

// CachedResponse is a stored copy of a response body, keyed by request
// identity in a generation cache.
type CachedResponse struct {
	Status     int
	Header     http.Header
	Body       []byte
	SameOrigin bool
}

// clone returns a copy so callers cannot mutate the stored entry.
func (r *CachedResponse) clone() *CachedResponse {
	body := make([]byte, len(r.Body))
	copy(body, r.Body)
	return &CachedResponse{
		Status:     r.Status,
		Header:     r.Header.Clone(),
		Body:       body,
		SameOrigin: r.SameOrigin,
	}
}

// CacheStore holds the agent's response caches, namespaced by generation.
// A new agent generation opens its own namespace and purges the rest on
// activation.
type CacheStore struct {
	mu          sync.Mutex
	generations map[string]*cache.Cache
}

// NewCacheStore creates an empty cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{generations: make(map[string]*cache.Cache)}
}

// Generation opens (or creates) the cache namespace for the given generation.
func (cs *CacheStore) Generation(name string) *GenerationCache {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	entries, ok := cs.generations[name]
	if !ok {
		entries = cache.New(cache.NoExpiration, 0)
		cs.generations[name] = entries
	}
	return &GenerationCache{name: name, entries: entries}
}

// Generations lists the names of all open cache namespaces.
func (cs *CacheStore) Generations() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	names := make([]string, 0, len(cs.generations))
	for name := range cs.generations {
		names = append(names, name)
	}
	return names
}

// PurgeExcept deletes every generation whose name does not match current and
// returns the names that were removed.
func (cs *CacheStore) PurgeExcept(current string) []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var purged []string
	for name := range cs.generations {
		if name != current {
			delete(cs.generations, name)
			purged = append(purged, name)
		}
	}
	return purged
}

// GenerationCache is the key-value view of one generation's entries.
type GenerationCache struct {
	name    string
	entries *cache.Cache
}

// Name returns the generation identifier this cache belongs to.
func (g *GenerationCache) Name() string {
	return g.name
}

// Get looks up a request identity and returns a copy of the stored response.
func (g *GenerationCache) Get(key string) (*CachedResponse, bool) {
	v, ok := g.entries.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*CachedResponse).clone(), true
}

// Put stores a copy of the response under the request identity.
func (g *GenerationCache) Put(key string, resp *CachedResponse) {
	g.entries.Set(key, resp.clone(), cache.NoExpiration)
}

// Len returns the number of stored entries.
func (g *GenerationCache) Len() int {
	return g.entries.ItemCount()
}

// requestKey derives the request identity a cache entry is stored under.
func requestKey(method, url string) string {
	return method + " " + url
}
