package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CheckoutGuard reserves a checkout session key before order creation so a
// client re-evaluating "create now?" mid-checkout can produce at most one
// order. Reserve before the create call, Release only on a failure the user
// can retry; a successful creation leaves the key held (the unique index on
// orders.checkout_session_key is the durable backstop).
type CheckoutGuard interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

const checkoutReservationTTL = 15 * time.Minute

// RedisCheckoutGuard holds reservations in redis so they work across
// replicas.
type RedisCheckoutGuard struct {
	client *redis.Client
}

// NewRedisCheckoutGuard constructs a RedisCheckoutGuard.
func NewRedisCheckoutGuard(addr string) *RedisCheckoutGuard {
	return &RedisCheckoutGuard{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Reserve claims the session key. False means another creation for the same
// checkout is in flight or already done.
func (g *RedisCheckoutGuard) Reserve(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, "checkout:"+key, 1, checkoutReservationTTL).Result()
}

// Release frees the session key after a retryable failure.
func (g *RedisCheckoutGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, "checkout:"+key).Err()
}

// MemoryCheckoutGuard is the single-process fallback used when redis is not
// configured.
type MemoryCheckoutGuard struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewMemoryCheckoutGuard constructs a MemoryCheckoutGuard.
func NewMemoryCheckoutGuard() *MemoryCheckoutGuard {
	return &MemoryCheckoutGuard{held: make(map[string]time.Time)}
}

// Reserve claims the session key in process memory.
func (g *MemoryCheckoutGuard) Reserve(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if expires, ok := g.held[key]; ok && time.Now().Before(expires) {
		return false, nil
	}
	g.held[key] = time.Now().Add(checkoutReservationTTL)
	return true, nil
}

// Release frees the session key.
func (g *MemoryCheckoutGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
	return nil
}
