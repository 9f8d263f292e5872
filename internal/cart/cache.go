package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// generationTTL outlives any in-flight cart read by a wide margin.
const generationTTL = 24 * time.Hour

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Generation(ctx context.Context, key string) (int64, error)
	SetIfGeneration(ctx context.Context, key, genKey string, gen int64, value string, ttl time.Duration) (bool, error)
	EvictAndBump(ctx context.Context, key, genKey string, genTTL time.Duration) error
	CartKey(owner string) string
	CartGenerationKey(owner string) string
}

type redisCache struct {
	store  cacheStore
	ttl    time.Duration
	jitter time.Duration
}

// NewRedisCache stores whole carts as JSON documents. Entries expire after
// ttl plus a random jitter so owners loaded together do not expire together.
func NewRedisCache(store cacheStore, ttl, jitter time.Duration) Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if jitter < 0 {
		jitter = 0
	}
	return &redisCache{store: store, ttl: ttl, jitter: jitter}
}

func (c *redisCache) Get(ctx context.Context, owner string) (*Cart, error) {
	raw, err := c.store.Get(ctx, c.store.CartKey(owner))
	if redis.IsMiss(err) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cached Cart
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, fmt.Errorf("unmarshal cached cart: %w", err)
	}
	return &cached, nil
}

func (c *redisCache) Generation(ctx context.Context, owner string) (int64, error) {
	gen, err := c.store.Generation(ctx, c.store.CartGenerationKey(owner))
	if err != nil {
		return 0, fmt.Errorf("redis get cart generation: %w", err)
	}
	return gen, nil
}

func (c *redisCache) Set(ctx context.Context, owner string, cart Cart, generation int64) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	_, err = c.store.SetIfGeneration(ctx, c.store.CartKey(owner), c.store.CartGenerationKey(owner), generation, string(payload), c.expiry())
	if err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, owner string) error {
	if err := c.store.EvictAndBump(ctx, c.store.CartKey(owner), c.store.CartGenerationKey(owner), generationTTL); err != nil {
		return fmt.Errorf("redis delete cart: %w", err)
	}
	return nil
}

func (c *redisCache) expiry() time.Duration {
	if c.jitter <= 0 {
		return c.ttl
	}
	return c.ttl + rand.N(c.jitter)
}

type noopCache struct{}

// NoopCache disables caching; every read misses.
func NoopCache() Cache { return noopCache{} }

func (noopCache) Get(context.Context, string) (*Cart, error)       { return nil, ErrCacheMiss }
func (noopCache) Generation(context.Context, string) (int64, error) { return 0, nil }
func (noopCache) Set(context.Context, string, Cart, int64) error    { return nil }
func (noopCache) Delete(context.Context, string) error             { return nil }
