package mosaic

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TileCache stores encoded tiles by URL.
type TileCache interface {
	// Get returns the tile and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// MemoryCache keeps up to Capacity tiles in process, evicting the oldest
// insertion first. It is safe for concurrent use.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	tiles    map[string][]byte
	order    []string
}

// DefaultMemoryCapacity is the tile count kept by NewMemoryCache(0).
const DefaultMemoryCapacity = 1024

// NewMemoryCache returns a cache bounded to capacity tiles.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryCache{capacity: capacity, tiles: make(map[string][]byte)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.tiles[key]
	return data, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tiles[key]; ok {
		c.tiles[key] = data
		return nil
	}
	for len(c.order) >= c.capacity {
		delete(c.tiles, c.order[0])
		c.order = c.order[1:]
	}
	c.tiles[key] = data
	c.order = append(c.order, key)
	return nil
}

// Len returns the number of cached tiles.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tiles)
}

// RedisCache shares tiles between processes through Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// DefaultRedisPrefix namespaces tile keys.
const DefaultRedisPrefix = "mapposter:tile:"

// NewRedisCache returns a cache on client. A zero ttl keeps tiles forever.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: DefaultRedisPrefix, ttl: ttl}
}

// DialRedis connects to addr and returns a cache on it.
func DialRedis(addr, password string, db int, ttl time.Duration) *RedisCache {
	return NewRedisCache(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), ttl)
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, data []byte) error {
	return c.client.Set(ctx, c.prefix+key, data, c.ttl).Err()
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Compile-time interface checks.
var (
	_ TileCache = (*MemoryCache)(nil)
	_ TileCache = (*RedisCache)(nil)
)
