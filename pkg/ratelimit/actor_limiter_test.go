package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(3, 0.0001)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "bucket drained")

	tb.Reset()
	assert.True(t, tb.Allow())
}

func TestTokenBucket_AllowN(t *testing.T) {
	tb := NewTokenBucket(5, 0.0001)

	assert.True(t, tb.AllowN(4))
	assert.False(t, tb.AllowN(2))
	assert.True(t, tb.AllowN(1))
}

func TestActorRateLimiter_IsolatesActors(t *testing.T) {
	al := NewActorRateLimiter(2, 0.0001)
	defer al.Stop()

	assert.True(t, al.Allow("cust-1"))
	assert.True(t, al.Allow("cust-1"))
	assert.False(t, al.Allow("cust-1"))

	// A different actor is unaffected by the first one's burst
	assert.True(t, al.Allow("cust-2"))
}
