package settlement

import (
	"sync"
	"time"
)

// inflightGuard dedupes settlement attempts per order while one is still
// awaiting confirmation: a second request for the same order is rejected
// instead of producing a second pending ledger transaction. Entries expire
// after a TTL so a crashed attempt cannot wedge its order forever.
type inflightGuard struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	nowFunc func() time.Time
}

// newInflightGuard creates a guard with the given expiry window
func newInflightGuard(ttl time.Duration) *inflightGuard {
	return &inflightGuard{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// tryAcquire marks the order as having a settlement in flight. It returns
// false when a non-expired attempt already holds the order; on success the
// returned token identifies this acquisition and must be passed to release.
func (g *inflightGuard) tryAcquire(orderID string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFunc()

	if started, exists := g.entries[orderID]; exists && now.Sub(started) < g.ttl {
		return time.Time{}, false
	}

	g.entries[orderID] = now
	return now, true
}

// release clears the in-flight marker for the order, but only if this
// acquisition still holds it. An attempt that outlived its TTL must not
// evict the marker of whoever re-acquired the order in the meantime.
func (g *inflightGuard) release(orderID string, token time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if started, exists := g.entries[orderID]; exists && started.Equal(token) {
		delete(g.entries, orderID)
	}
}
