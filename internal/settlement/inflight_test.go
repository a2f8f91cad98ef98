package settlement

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acquired(t *testing.T, g *inflightGuard, orderID string) time.Time {
	t.Helper()

	token, ok := g.tryAcquire(orderID)
	require.True(t, ok)
	return token
}

func rejected(g *inflightGuard, orderID string) bool {
	_, ok := g.tryAcquire(orderID)
	return !ok
}

func TestInflightGuard_AcquireAndRelease(t *testing.T) {
	g := newInflightGuard(time.Minute)

	token := acquired(t, g, "ord-1")
	assert.True(t, rejected(g, "ord-1"))
	acquired(t, g, "ord-2") // different orders are independent

	g.release("ord-1", token)
	acquired(t, g, "ord-1")
}

func TestInflightGuard_ExpiredEntryIsReacquirable(t *testing.T) {
	g := newInflightGuard(time.Minute)
	now := time.Now()
	g.nowFunc = func() time.Time { return now }

	acquired(t, g, "ord-1")

	now = now.Add(30 * time.Second)
	assert.True(t, rejected(g, "ord-1"))

	// A crashed attempt stops blocking the order once the TTL passes
	now = now.Add(31 * time.Second)
	acquired(t, g, "ord-1")
}

func TestInflightGuard_StaleReleaseKeepsNewHolder(t *testing.T) {
	g := newInflightGuard(time.Minute)
	now := time.Now()
	g.nowFunc = func() time.Time { return now }

	stale := acquired(t, g, "ord-1")

	// The first attempt outlives its TTL while still running, and a second
	// attempt takes over the order
	now = now.Add(61 * time.Second)
	fresh := acquired(t, g, "ord-1")

	// When the first attempt finally finishes, its release must not evict
	// the live marker of the second
	g.release("ord-1", stale)
	assert.True(t, rejected(g, "ord-1"))

	g.release("ord-1", fresh)
	acquired(t, g, "ord-1")
}

func TestInflightGuard_SingleWinnerUnderContention(t *testing.T) {
	g := newInflightGuard(time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := g.tryAcquire("ord-1"); ok {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
}
