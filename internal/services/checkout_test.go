package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuardReserveOnce(t *testing.T) {
	guard := NewMemoryCheckoutGuard()
	ctx := context.Background()

	ok, err := guard.Reserve(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.Reserve(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Different keys do not contend.
	ok, err = guard.Reserve(ctx, "session-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryGuardRelease(t *testing.T) {
	guard := NewMemoryCheckoutGuard()
	ctx := context.Background()

	ok, _ := guard.Reserve(ctx, "session-1")
	require.True(t, ok)

	require.NoError(t, guard.Release(ctx, "session-1"))

	ok, err := guard.Reserve(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryGuardExpiry(t *testing.T) {
	guard := NewMemoryCheckoutGuard()
	ctx := context.Background()

	ok, _ := guard.Reserve(ctx, "session-1")
	require.True(t, ok)

	// A reservation past its TTL can be claimed again.
	guard.mu.Lock()
	guard.held["session-1"] = time.Now().Add(-time.Second)
	guard.mu.Unlock()

	ok, err := guard.Reserve(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryGuardConcurrentReserve(t *testing.T) {
	guard := NewMemoryCheckoutGuard()
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := guard.Reserve(ctx, "session-1")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
