package bus

import "sync"

const defaultDedupCacheSize = 4096

// dedupCache tracks envelope IDs through two states: in flight while the
// first delivery is still being handled, and seen once a delivery completed
// successfully. Only seen IDs enter the bounded eviction ring, so a failed
// attempt never occupies a slot and deduplication covers the redelivery
// window rather than all history. Handlers still have to be idempotent for
// duplicates that fall outside the window or arrive on another instance.
type dedupCache struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	seen     map[string]struct{}
	order    []string
	next     int
}

func newDedupCache(size int) *dedupCache {
	if size <= 0 {
		size = defaultDedupCacheSize
	}
	return &dedupCache{
		inFlight: make(map[string]struct{}),
		seen:     make(map[string]struct{}, size),
		order:    make([]string, size),
	}
}

// Begin reports whether the ID already completed successfully. A first
// sighting is marked in flight. A duplicate of an in-flight ID is NOT a
// duplicate yet: the first attempt may still fail, so the caller processes
// it rather than acking work that was never done.
func (c *dedupCache) Begin(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[id]; ok {
		return true
	}
	c.inFlight[id] = struct{}{}
	return false
}

// Done promotes the ID from in flight to seen, entering it into the
// eviction ring. IDs enter the ring exactly once; a concurrent duplicate
// completing second is a no-op.
func (c *dedupCache) Done(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[id]; ok {
		return
	}
	delete(c.inFlight, id)

	if evicted := c.order[c.next]; evicted != "" {
		delete(c.seen, evicted)
	}
	c.order[c.next] = id
	c.next = (c.next + 1) % len(c.order)
	c.seen[id] = struct{}{}
}

// Forget drops an in-flight ID after a failed attempt so the redelivery
// runs the handler again. Completed IDs stay recorded.
func (c *dedupCache) Forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, id)
}
