package ratelimit

import (
	"sync"
	"time"
)

// ActorRateLimiter rate limits settlement requests per acting user, so one
// actor hammering retries cannot starve the ledger node for everyone else
type ActorRateLimiter struct {
	limiters   map[string]*actorBucket
	mu         sync.Mutex
	maxTokens  float64
	refillRate float64
	idleAfter  time.Duration
	cleanup    *time.Ticker
	stopChan   chan struct{}
}

type actorBucket struct {
	bucket   *TokenBucket
	lastSeen time.Time
}

// NewActorRateLimiter creates a new ActorRateLimiter
func NewActorRateLimiter(maxTokens, refillRate float64) *ActorRateLimiter {
	limiter := &ActorRateLimiter{
		limiters:   make(map[string]*actorBucket),
		maxTokens:  maxTokens,
		refillRate: refillRate,
		idleAfter:  30 * time.Minute,
		cleanup:    time.NewTicker(10 * time.Minute),
		stopChan:   make(chan struct{}),
	}

	go limiter.cleanupLoop()

	return limiter
}

// Allow checks if a request from the given actor can proceed
func (al *ActorRateLimiter) Allow(actorID string) bool {
	al.mu.Lock()

	entry, exists := al.limiters[actorID]

	if !exists {
		entry = &actorBucket{bucket: NewTokenBucket(al.maxTokens, al.refillRate)}
		al.limiters[actorID] = entry
	}

	entry.lastSeen = time.Now()
	al.mu.Unlock()

	return entry.bucket.Allow()
}

// cleanupLoop periodically drops buckets for actors that went idle
func (al *ActorRateLimiter) cleanupLoop() {
	for {
		select {
		case <-al.cleanup.C:
			cutoff := time.Now().Add(-al.idleAfter)

			al.mu.Lock()
			for id, entry := range al.limiters {
				if entry.lastSeen.Before(cutoff) {
					delete(al.limiters, id)
				}
			}
			al.mu.Unlock()
		case <-al.stopChan:
			al.cleanup.Stop()
			return
		}
	}
}

// Stop stops the actor rate limiter
func (al *ActorRateLimiter) Stop() {
	close(al.stopChan)
}
