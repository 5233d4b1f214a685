package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/olivia-docs/backend/internal/infrastructure/config"
	"github.com/olivia-docs/backend/internal/infrastructure/log"
	"github.com/olivia-docs/backend/internal/infrastructure/storage"
)

// TieredCache 分层缓存：内存层优先，持久层兜底
// 值在边界处统一序列化为 JSON，两层存储同一份字节
// 持久层故障只降级为未命中，不影响请求链路
type TieredCache struct {
	memory  *MemoryCache
	durable *storage.CacheStore
	logger  *slog.Logger

	memoryHits  atomic.Int64
	durableHits atomic.Int64
	misses      atomic.Int64
	sets        atomic.Int64
}

// CacheStats 缓存统计
type CacheStats struct {
	MemoryHits     int64   `json:"memory_hits"`
	DurableHits    int64   `json:"durable_hits"`
	Misses         int64   `json:"misses"`
	Sets           int64   `json:"sets"`
	HitRate        float64 `json:"hit_rate"`
	MemoryEntries  int     `json:"memory_entries"`
	DurableEntries int64   `json:"durable_entries"`
}

// NewTieredCache 创建分层缓存
func NewTieredCache(cfg *config.CacheConfig, durable *storage.CacheStore) *TieredCache {
	memory := NewMemoryCache(cfg.MaxSize, time.Duration(cfg.DefaultTTL)*time.Second)
	return &TieredCache{
		memory:  memory,
		durable: durable,
		logger:  log.NewModuleLogger("cache", "tiered"),
	}
}

// Get 读取并反序列化缓存值到 dest
// 持久层命中时回填内存层，下次读取走内存
func (c *TieredCache) Get(key string, dest any) bool {
	data, ok := c.GetBytes(key)
	if !ok {
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// 两层一起删，避免坏载荷从持久层反复回填
		c.logger.Warn("Failed to decode cached value, treating as miss",
			"key", key, "error", err)
		c.Delete(key)
		return false
	}
	return true
}

// GetBytes 读取缓存原始字节
func (c *TieredCache) GetBytes(key string) ([]byte, bool) {
	if data, ok := c.memory.Get(key); ok {
		c.memoryHits.Add(1)
		return data, true
	}

	data, remaining, ok, err := c.durable.GetWithTTL(key)
	if err != nil {
		c.logger.Warn("Durable cache read failed, degrading to miss",
			"key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	// 回填内存层，带上持久层的剩余 TTL
	c.durableHits.Add(1)
	c.memory.Set(key, data, c.memoryTTL(remaining))
	return data, true
}

// memoryTTL 内存层条目 TTL：跟随调用方 TTL，但不超过内存层
// 默认值，长 TTL 条目不长期占用内存；ttl <= 0 用默认值
func (c *TieredCache) memoryTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > c.memory.defaultTTL {
		return c.memory.defaultTTL
	}
	return ttl
}

// Set 序列化并写入两层缓存
// 条目的过期时间由本次写入决定：内存层同样遵循调用方 TTL，
// 只在超过内存层默认值时截短
func (c *TieredCache) Set(key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	c.memory.Set(key, data, c.memoryTTL(ttl))
	c.sets.Add(1)

	if err := c.durable.Set(key, data, ttl); err != nil {
		// 持久层写失败不阻断请求，内存层仍然生效
		c.logger.Warn("Durable cache write failed", "key", key, "error", err)
	}
	return nil
}

// Delete 删除两层中的条目
func (c *TieredCache) Delete(key string) {
	c.memory.Delete(key)
	if err := c.durable.Delete(key); err != nil {
		c.logger.Warn("Durable cache delete failed", "key", key, "error", err)
	}
}

// ClearPattern 按模式清除两层中的条目，返回持久层删除条数
func (c *TieredCache) ClearPattern(pattern string) int64 {
	memDeleted := c.memory.DeleteByPattern(pattern)

	durDeleted, err := c.durable.DeleteByPattern(pattern)
	if err != nil {
		c.logger.Warn("Durable cache pattern clear failed",
			"pattern", pattern, "error", err)
	}

	c.logger.Debug("Cleared cache entries by pattern",
		"pattern", pattern, "memory", memDeleted, "durable", durDeleted)
	return durDeleted
}

// GetOrSet 读取缓存，未命中时调用 load 计算并写入
// load 的结果写入后再解码到 dest，保证与后续命中路径看到同一字节
// 并发未命中时 load 可能被执行多次，以最后一次写入为准
func (c *TieredCache) GetOrSet(key string, ttl time.Duration, dest any, load func() (any, error)) error {
	if c.Get(key, dest) {
		return nil
	}

	value, err := load()
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	c.memory.Set(key, data, c.memoryTTL(ttl))
	c.sets.Add(1)
	if err := c.durable.Set(key, data, ttl); err != nil {
		c.logger.Warn("Durable cache write failed", "key", key, "error", err)
	}

	return json.Unmarshal(data, dest)
}

// CleanupExpired 清理持久层过期条目
func (c *TieredCache) CleanupExpired() (int64, error) {
	return c.durable.CleanupExpired()
}

// Stats 当前缓存统计
func (c *TieredCache) Stats() CacheStats {
	memHits := c.memoryHits.Load()
	durHits := c.durableHits.Load()
	misses := c.misses.Load()

	total := memHits + durHits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(memHits+durHits) / float64(total)
	}

	durEntries, err := c.durable.Count()
	if err != nil {
		c.logger.Warn("Failed to count durable cache entries", "error", err)
	}

	return CacheStats{
		MemoryHits:     memHits,
		DurableHits:    durHits,
		Misses:         misses,
		Sets:           c.sets.Load(),
		HitRate:        hitRate,
		MemoryEntries:  c.memory.Len(),
		DurableEntries: durEntries,
	}
}
