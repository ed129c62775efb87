package overlay

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/userbase-net/userbase/internal/model"
)

// FetchFunc loads overlays for a batch of keys, typically over the network.
type FetchFunc func(ctx context.Context, userID model.UserID, keys []PostKey) (map[PostKey]VoteOverlay, error)

type cacheKey struct {
	UserID model.UserID
	Key    PostKey
}

// cacheEntry with a nil Overlay means "looked up, confirmed absent", which is
// distinct from the key not being cached at all.
type cacheEntry struct {
	Overlay  *VoteOverlay
	StoredAt time.Time
}

type inflightCall struct {
	done   chan struct{}
	result map[PostKey]*VoteOverlay
	err    error
}

// Cache is the client-side overlay façade. It collapses overlapping batch
// requests issued in the same tick into one fetch (keyed by the canonical
// batch signature) and caches negative results so absent overlays do not
// cause repeat fetch storms. TTL and invalidation are injectable so tests
// and multi-session processes can reset it deterministically.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	fetch    FetchFunc
	entries  map[cacheKey]cacheEntry
	inflight map[string]*inflightCall
}

// NewCache builds a cache around fetch. A zero ttl means entries never
// expire.
func NewCache(fetch FetchFunc, ttl time.Duration) *Cache {
	return &Cache{
		ttl:      ttl,
		now:      time.Now,
		fetch:    fetch,
		entries:  map[cacheKey]cacheEntry{},
		inflight: map[string]*inflightCall{},
	}
}

// Get returns the overlay state for every requested key. Entries with a nil
// value are confirmed absent. Keys not yet cached are fetched; concurrent
// calls requesting the same batch share a single fetch.
func (c *Cache) Get(ctx context.Context, userID model.UserID, keys []PostKey) (map[PostKey]*VoteOverlay, error) {
	keys = NormalizeKeys(keys)
	result := make(map[PostKey]*VoteOverlay, len(keys))

	c.mu.Lock()
	missing := []PostKey{}
	for _, key := range keys {
		entry, ok := c.entries[cacheKey{userID, key}]
		if ok && !c.expired(entry) {
			result[key] = entry.Overlay
			continue
		}
		missing = append(missing, key)
	}
	if len(missing) == 0 {
		c.mu.Unlock()
		return result, nil
	}

	signature := batchSignature(userID, missing)
	call, joined := c.inflight[signature]
	if !joined {
		call = &inflightCall{done: make(chan struct{})}
		c.inflight[signature] = call
	}
	c.mu.Unlock()

	if !joined {
		fetched, err := c.fetch(ctx, userID, missing)

		c.mu.Lock()
		call.err = err
		if err == nil {
			call.result = make(map[PostKey]*VoteOverlay, len(missing))
			stored := c.now()
			for _, key := range missing {
				if overlay, ok := fetched[key]; ok {
					value := overlay
					call.result[key] = &value
					c.entries[cacheKey{userID, key}] = cacheEntry{Overlay: &value, StoredAt: stored}
				} else {
					// Negative result: the server confirmed there is no
					// overlay for this key.
					call.result[key] = nil
					c.entries[cacheKey{userID, key}] = cacheEntry{Overlay: nil, StoredAt: stored}
				}
			}
		}
		delete(c.inflight, signature)
		c.mu.Unlock()
		close(call.done)
	} else {
		select {
		case <-call.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if call.err != nil {
		return nil, call.err
	}
	for key, overlay := range call.result {
		result[key] = overlay
	}
	return result, nil
}

// Put primes the cache after a local optimistic write.
func (c *Cache) Put(userID model.UserID, key PostKey, overlay VoteOverlay) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{userID, key}] = cacheEntry{Overlay: &overlay, StoredAt: c.now()}
}

// Invalidate drops all cached state for one user.
func (c *Cache) Invalidate(userID model.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.UserID == userID {
			delete(c.entries, key)
		}
	}
}

// Reset drops everything, for tests and session switches.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[cacheKey]cacheEntry{}
}

func (c *Cache) expired(entry cacheEntry) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(entry.StoredAt) > c.ttl
}

// batchSignature is the canonical form of a key set: sorted, deduplicated,
// scoped to the user. Two requests for the same set collapse onto one fetch.
func batchSignature(userID model.UserID, keys []PostKey) string {
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = key.Author + "/" + key.Permlink
	}
	sort.Strings(parts)
	return string(userID) + "|" + strings.Join(parts, ";")
}
