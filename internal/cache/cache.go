package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is the shared caching interface. Both providers store values
// opaquely; callers own serialization of anything beyond plain strings.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool

	GetMultiple(ctx context.Context, keys []string) (map[string]interface{}, error)
	DeleteMultiple(ctx context.Context, keys []string) error
	DeletePattern(ctx context.Context, pattern string) error

	GetTTL(ctx context.Context, key string) (time.Duration, error)

	Clear(ctx context.Context) error
	Stats(ctx context.Context) (*CacheStats, error)
	Health(ctx context.Context) error
	Close() error
}

// CacheStats represents cache statistics.
type CacheStats struct {
	Hits     int64         `json:"hits"`
	Misses   int64         `json:"misses"`
	Sets     int64         `json:"sets"`
	Deletes  int64         `json:"deletes"`
	Keys     int64         `json:"keys"`
	HitRatio float64       `json:"hit_ratio"`
	Uptime   time.Duration `json:"uptime"`
}

// Config holds cache configuration.
type Config struct {
	Provider        string        `json:"provider"` // "memory", "redis"
	TTL             time.Duration `json:"ttl"`
	MaxKeys         int           `json:"max_keys"`
	CleanupInterval time.Duration `json:"cleanup_interval"`

	RedisURL      string `json:"redis_url"`
	RedisDB       int    `json:"redis_db"`
	RedisPassword string `json:"redis_password"`
	PoolSize      int    `json:"pool_size"`
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:        "memory",
		TTL:             5 * time.Minute,
		MaxKeys:         10000,
		CleanupInterval: time.Minute,
		PoolSize:        10,
	}
}

// NewCache creates a cache instance based on configuration.
func NewCache(config *Config, logger *zap.Logger) (Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(config.Provider) {
	case "redis":
		return NewRedisCache(config, logger)
	case "memory", "":
		logger.Info("Using in-memory cache")
		return NewMemoryCache(config, logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", config.Provider)
	}
}

// ===============================
// MEMORY CACHE IMPLEMENTATION
// ===============================

type memoryCache struct {
	mu              sync.RWMutex
	items           map[string]*cacheItem
	maxKeys         int
	cleanupInterval time.Duration
	logger          *zap.Logger
	stats           CacheStats
	startTime       time.Time
	stopCh          chan struct{}
}

type cacheItem struct {
	Value      interface{}
	ExpiresAt  time.Time
	AccessedAt time.Time
}

// NewMemoryCache creates an in-memory cache with periodic expiry sweeps.
func NewMemoryCache(config *Config, logger *zap.Logger) Cache {
	c := &memoryCache{
		items:           make(map[string]*cacheItem),
		maxKeys:         config.MaxKeys,
		cleanupInterval: config.CleanupInterval,
		logger:          logger,
		startTime:       time.Now(),
		stopCh:          make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

func (c *memoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		c.stats.Misses++
		return nil, false
	}
	if time.Now().After(item.ExpiresAt) {
		delete(c.items, key)
		c.stats.Misses++
		return nil, false
	}

	item.AccessedAt = time.Now()
	c.stats.Hits++
	return item.Value, true
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.maxKeys {
		c.evictLRU()
	}

	now := time.Now()
	c.items[key] = &cacheItem{
		Value:      value,
		ExpiresAt:  now.Add(ttl),
		AccessedAt: now,
	}
	c.stats.Sets++
	c.stats.Keys = int64(len(c.items))
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		delete(c.items, key)
		c.stats.Deletes++
		c.stats.Keys = int64(len(c.items))
	}
	return nil
}

func (c *memoryCache) Exists(ctx context.Context, key string) bool {
	_, found := c.Get(ctx, key)
	return found
}

func (c *memoryCache) GetMultiple(ctx context.Context, keys []string) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	for _, key := range keys {
		if value, found := c.Get(ctx, key); found {
			result[key] = value
		}
	}
	return result, nil
}

func (c *memoryCache) DeleteMultiple(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := c.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if matchPattern(key, pattern) {
			delete(c.items, key)
			c.stats.Deletes++
		}
	}
	c.stats.Keys = int64(len(c.items))
	return nil
}

func (c *memoryCache) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if item, exists := c.items[key]; exists {
		remaining := time.Until(item.ExpiresAt)
		if remaining > 0 {
			return remaining, nil
		}
	}
	return 0, fmt.Errorf("key not found or expired")
}

func (c *memoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*cacheItem)
	c.stats.Keys = 0
	return nil
}

func (c *memoryCache) Stats(ctx context.Context) (*CacheStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Keys = int64(len(c.items))
	stats.Uptime = time.Since(c.startTime)

	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}
	return &stats, nil
}

func (c *memoryCache) Health(ctx context.Context) error {
	return nil
}

func (c *memoryCache) Close() error {
	close(c.stopCh)
	return nil
}

func (c *memoryCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := 0
	for key, item := range c.items {
		if now.After(item.ExpiresAt) {
			delete(c.items, key)
			expired++
		}
	}
	if expired > 0 {
		c.logger.Debug("Cleaned up expired cache items",
			zap.Int("expired_count", expired),
			zap.Int("remaining_count", len(c.items)),
		)
	}
	c.stats.Keys = int64(len(c.items))
}

// evictLRU removes the least recently accessed item. Caller holds the lock.
func (c *memoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, item := range c.items {
		if oldestKey == "" || item.AccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.AccessedAt
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

// matchPattern performs simple wildcard matching with a single leading
// or trailing star, enough for key-prefix invalidation.
func matchPattern(str, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(str, strings.TrimSuffix(pattern, "*"))
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(str, strings.TrimPrefix(pattern, "*"))
	}
	return str == pattern
}

// ===============================
// REDIS CACHE IMPLEMENTATION
// ===============================

type redisCache struct {
	client *redis.Client
	logger *zap.Logger
	config *Config
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(config *Config, logger *zap.Logger) (Cache, error) {
	if config == nil {
		return nil, fmt.Errorf("cache config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var options *redis.Options
	if config.RedisURL != "" {
		var err error
		options, err = redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
	} else {
		options = &redis.Options{
			Addr:     "localhost:6379",
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		}
	}
	if config.PoolSize > 0 {
		options.PoolSize = config.PoolSize
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis cache initialized",
		zap.String("addr", options.Addr),
		zap.Int("db", options.DB),
	)

	return &redisCache{client: client, logger: logger, config: config}, nil
}

// Get returns the stored string as-is; callers unmarshal typed values.
// Transport errors are logged and surface as a miss, so readers fall
// back to their source of truth.
func (r *redisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	} else if err != nil {
		r.logger.Error("Failed to get from Redis",
			zap.String("key", key),
			zap.Error(err))
		return nil, false
	}
	return val, true
}

func (r *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var val string
	switch v := value.(type) {
	case string:
		val = v
	case []byte:
		val = string(v)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal value: %w", err)
		}
		val = string(data)
	}

	if ttl <= 0 {
		ttl = r.config.TTL
	}
	return r.client.Set(ctx, key, val, ttl).Err()
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisCache) Exists(ctx context.Context, key string) bool {
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.logger.Error("Failed to check key existence",
			zap.String("key", key),
			zap.Error(err))
		return false
	}
	return exists > 0
}

func (r *redisCache) GetMultiple(ctx context.Context, keys []string) (map[string]interface{}, error) {
	if len(keys) == 0 {
		return map[string]interface{}{}, nil
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[string]interface{}, len(keys))
	for i, key := range keys {
		if vals[i] != nil {
			result[key] = vals[i]
		}
	}
	return result, nil
}

func (r *redisCache) DeleteMultiple(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisCache) DeletePattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		// Delete in batches to avoid long-blocking DEL calls
		if len(keys) >= 1000 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

func (r *redisCache) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	return r.client.TTL(ctx, key).Result()
}

func (r *redisCache) Clear(ctx context.Context) error {
	return r.client.FlushDB(ctx).Err()
}

func (r *redisCache) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{}

	info, err := r.client.Info(ctx, "stats").Result()
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(info, "\r\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		value := strings.TrimSpace(parts[1])
		switch strings.TrimSpace(parts[0]) {
		case "keyspace_hits":
			if v, err := strconv.ParseInt(value, 10, 64); err == nil {
				stats.Hits = v
			}
		case "keyspace_misses":
			if v, err := strconv.ParseInt(value, 10, 64); err == nil {
				stats.Misses = v
			}
		}
	}

	if keys, err := r.client.DBSize(ctx).Result(); err == nil {
		stats.Keys = keys
	}

	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}
	return stats, nil
}

func (r *redisCache) Health(ctx context.Context) error {
	_, err := r.client.Ping(ctx).Result()
	return err
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
