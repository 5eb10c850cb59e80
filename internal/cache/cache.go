// Package cache holds read-through caches for derived views.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"inventory-transfer/internal/config"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache stores opaque values with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPattern removes every key matching a glob with a trailing '*'.
	DeleteByPattern(ctx context.Context, pattern string) error
	// Incr atomically adds one to the counter at key, starting from zero, and returns it.
	// Counters never expire.
	Incr(ctx context.Context, key string) (int64, error)
}

const (
	inventoryViewPattern   = "warehouse_inventory:*"
	inventoryGenerationKey = "warehouse_inventory_generation"
)

// WarehouseInventoryKey names the cached inventory view of one warehouse at a
// catalog generation and a warehouse version.
func WarehouseInventoryKey(warehouseID, generation, version int64) string {
	return fmt.Sprintf("warehouse_inventory:%d:%d.%d", warehouseID, generation, version)
}

func inventoryVersionKey(warehouseID int64) string {
	return fmt.Sprintf("warehouse_inventory_version:%d", warehouseID)
}

// InventoryViews names and invalidates the cached per-warehouse inventory views.
//
// Invalidation bumps a counter that is part of the view key rather than deleting
// the view. A reader resolves the key before it loads from the database, so rows
// loaded before a commit can only be written under a key no later reader resolves.
type InventoryViews struct {
	c Cache
}

func NewInventoryViews(c Cache) InventoryViews {
	return InventoryViews{c: c}
}

// Key resolves the current view key of a warehouse.
func (v InventoryViews) Key(ctx context.Context, warehouseID int64) (string, error) {
	gen, err := v.counter(ctx, inventoryGenerationKey)
	if err != nil {
		return "", err
	}
	ver, err := v.counter(ctx, inventoryVersionKey(warehouseID))
	if err != nil {
		return "", err
	}
	return WarehouseInventoryKey(warehouseID, gen, ver), nil
}

// Invalidate retires the view of one warehouse.
func (v InventoryViews) Invalidate(ctx context.Context, warehouseID int64) error {
	_, err := v.c.Incr(ctx, inventoryVersionKey(warehouseID))
	return err
}

// InvalidateAll retires the view of every warehouse and drops the stored views.
func (v InventoryViews) InvalidateAll(ctx context.Context) error {
	if _, err := v.c.Incr(ctx, inventoryGenerationKey); err != nil {
		return err
	}
	return v.c.DeleteByPattern(ctx, inventoryViewPattern)
}

func (v InventoryViews) counter(ctx context.Context, key string) (int64, error) {
	raw, err := v.c.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s: %w", key, err)
	}
	return n, nil
}

// New returns a Redis cache when REDIS_ADDR is set and reachable, and an in-memory
// cache otherwise.
func New(cfg *config.Config, logger *zap.Logger) Cache {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, using in-memory cache")
		return NewInMemoryCache()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.RedisAddr,
		Password:        cfg.RedisPassword,
		DB:              cfg.RedisDB,
		PoolSize:        10,
		MinIdleConns:    2,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Failed to connect to Redis, using in-memory cache",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err),
		)
		_ = rdb.Close()
		return NewInMemoryCache()
	}

	logger.Info("Redis cache initialized", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	return &RedisCache{client: rdb, logger: logger}
}

// GetJSON decodes the cached value at key into dest.
func GetJSON(ctx context.Context, c Cache, key string, dest any) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.Set(ctx, key, data, ttl)
}

// RedisCache implements Cache on a Redis server.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		c.logger.Warn("Redis Get error", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("Redis Set error", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Redis Delete error", zap.Strings("keys", keys), zap.Error(err))
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return c.Delete(ctx, keys...)
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		c.logger.Warn("Redis Incr error", zap.String("key", key), zap.Error(err))
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	return n, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// InMemoryCache is a process-local Cache for development and tests.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{data: make(map[string]entry), now: time.Now}
}

func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		delete(c.data, key)
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.data[key] = e
	return nil
}

func (c *InMemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *InMemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix, wildcard := strings.CutSuffix(pattern, "*")
	for k := range c.data {
		if (wildcard && strings.HasPrefix(k, prefix)) || k == pattern {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *InMemoryCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	if e, ok := c.data[key]; ok {
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("counter %s: %w", key, err)
		}
		n = parsed
	}
	n++
	c.data[key] = entry{value: []byte(strconv.FormatInt(n, 10))}
	return n, nil
}
