package session

import (
	"errors"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrNoSessionID is returned when Acquire is called without a browser session ID.
var ErrNoSessionID = errors.New("session: browser session id required")

// Factory builds a fresh Client for a browser session ID.
type Factory func(id string) (*Client, error)

// Registry maps browser session IDs to their Client bundles. Entries live in
// process memory only and expire after the configured TTL; an expired or
// evicted browser session simply bootstraps again on its next request.
type Registry struct {
	mu      sync.Mutex
	cache   *lru.LRU[string, *Client]
	factory Factory
}

// NewRegistry constructs a Registry bounded by size and ttl.
func NewRegistry(size int, ttl time.Duration, factory Factory) *Registry {
	if size <= 0 {
		size = 1024
	}
	return &Registry{
		cache:   lru.NewLRU[string, *Client](size, nil, ttl),
		factory: factory,
	}
}

// Acquire returns the Client for id, creating one on a miss. A new Client's
// cookie jar is seeded with the backend cookies persisted for the browser
// session, so bootstrap can resolve the identity after a restart.
func (r *Registry) Acquire(id string, seed []*http.Cookie) (*Client, error) {
	if id == "" {
		return nil, ErrNoSessionID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.cache.Get(id); ok {
		// Re-adding restarts the TTL, matching the sliding browser session.
		r.cache.Add(id, c)
		return c, nil
	}
	c, err := r.factory(id)
	if err != nil {
		return nil, err
	}
	c.Backend.SetCookies(seed)
	r.cache.Add(id, c)
	return c, nil
}

// Forget drops the Client for id.
func (r *Registry) Forget(id string) {
	r.cache.Remove(id)
}

// Len reports the number of live Clients.
func (r *Registry) Len() int {
	return r.cache.Len()
}
