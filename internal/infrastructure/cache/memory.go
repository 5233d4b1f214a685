package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// memoryEntry 内存缓存条目
type memoryEntry struct {
	key     string
	value   []byte
	expires time.Time
	element *list.Element
}

// MemoryCache 内存缓存层：LRU 淘汰 + 条目级 TTL
// 所有操作都持锁，适合单进程内高频读写
type MemoryCache struct {
	mu         sync.Mutex
	capacity   int
	defaultTTL time.Duration
	items      map[string]*memoryEntry
	order      *list.List

	now func() time.Time // 可注入，便于测试
}

// NewMemoryCache 创建内存缓存
// capacity <= 0 时使用 10000，ttl <= 0 时使用 1 小时
func NewMemoryCache(capacity int, ttl time.Duration) *MemoryCache {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryCache{
		capacity:   capacity,
		defaultTTL: ttl,
		items:      make(map[string]*memoryEntry, capacity),
		order:      list.New(),
		now:        time.Now,
	}
}

// Get 读取缓存值，过期条目惰性删除并视为未命中
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeExpired()

	ent, ok := c.items[key]
	if !ok {
		return nil, false
	}

	c.order.MoveToFront(ent.element)
	return ent.value, true
}

// Set 写入缓存值，容量满时淘汰最久未使用的条目
// 容量检查前先清掉过期条目，避免过期条目占位挤掉存活条目
// ttl <= 0 时使用默认 TTL
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeExpired()

	expires := c.computeExpiry(ttl)

	if ent, ok := c.items[key]; ok {
		ent.value = value
		ent.expires = expires
		c.order.MoveToFront(ent.element)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictOldest()
	}

	elem := c.order.PushFront(key)
	c.items[key] = &memoryEntry{
		key:     key,
		value:   value,
		expires: expires,
		element: elem,
	}
}

// Delete 删除单个条目
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.removeEntry(ent)
	}
}

// DeleteByPattern 按模式删除条目，'*' 为通配符，返回删除条数
func (c *MemoryCache) DeleteByPattern(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matched []*memoryEntry
	for key, ent := range c.items {
		if MatchPattern(pattern, key) {
			matched = append(matched, ent)
		}
	}
	for _, ent := range matched {
		c.removeEntry(ent)
	}
	return len(matched)
}

// Purge 清空全部条目
func (c *MemoryCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*memoryEntry, c.capacity)
	c.order.Init()
}

// Len 当前条目数
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MemoryCache) computeExpiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

// removeExpired 清除全部已过期条目，调用方需持锁
func (c *MemoryCache) removeExpired() {
	now := c.now()
	var expired []*memoryEntry
	for _, ent := range c.items {
		if !ent.expires.IsZero() && !now.Before(ent.expires) {
			expired = append(expired, ent)
		}
	}
	for _, ent := range expired {
		c.removeEntry(ent)
	}
}

func (c *MemoryCache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	key := elem.Value.(string)
	if ent, ok := c.items[key]; ok {
		c.removeEntry(ent)
	}
}

func (c *MemoryCache) removeEntry(ent *memoryEntry) {
	if ent.element != nil {
		c.order.Remove(ent.element)
	}
	delete(c.items, ent.key)
}

// MatchPattern 简单通配匹配：'*' 匹配任意长度字符，其余字符按字面匹配
func MatchPattern(pattern, key string) bool {
	segments := strings.Split(pattern, "*")
	if len(segments) == 1 {
		return pattern == key
	}

	// 首段必须是前缀
	if !strings.HasPrefix(key, segments[0]) {
		return false
	}
	rest := key[len(segments[0]):]

	// 末段必须是后缀
	last := segments[len(segments)-1]
	if !strings.HasSuffix(rest, last) {
		return false
	}
	rest = rest[:len(rest)-len(last)]

	// 中间段按顺序出现
	for _, seg := range segments[1 : len(segments)-1] {
		if seg == "" {
			continue
		}
		idx := strings.Index(rest, seg)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(seg):]
	}
	return true
}
