package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(10, time.Hour)

	c.Set("key", []byte("value"), 0)

	value, ok := c.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "value", string(value))

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(10, time.Hour)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("key", []byte("value"), time.Minute)

	_, ok := c.Get("key")
	assert.True(t, ok)

	// 过期后惰性删除
	current = current.Add(2 * time.Minute)
	_, ok = c.Get("key")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "过期条目应被删除")
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	c := NewMemoryCache(3, time.Hour)

	c.Set("a", []byte("1"), 0)
	c.Set("b", []byte("2"), 0)
	c.Set("c", []byte("3"), 0)

	// 访问 a，使其成为最近使用
	_, ok := c.Get("a")
	assert.True(t, ok)

	// 超容量写入应淘汰最久未使用的 b
	c.Set("d", []byte("4"), 0)

	_, ok = c.Get("b")
	assert.False(t, ok, "最久未使用的条目应被淘汰")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("d")
	assert.True(t, ok)
	assert.Equal(t, 3, c.Len())
}

func TestMemoryCache_UpdateExisting(t *testing.T) {
	c := NewMemoryCache(2, time.Hour)

	c.Set("key", []byte("v1"), 0)
	c.Set("key", []byte("v2"), 0)

	value, ok := c.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "v2", string(value))
	assert.Equal(t, 1, c.Len(), "覆盖写不应增加条目数")
}

func TestMemoryCache_DeleteByPattern(t *testing.T) {
	c := NewMemoryCache(10, time.Hour)

	c.Set("vector:1:2:aaa", []byte("a"), 0)
	c.Set("vector:1:2:bbb", []byte("b"), 0)
	c.Set("vector:1:3:ccc", []byte("c"), 0)
	c.Set("llm:1:2:ddd", []byte("d"), 0)

	deleted := c.DeleteByPattern("vector:1:2:*")
	assert.Equal(t, 2, deleted)

	_, ok := c.Get("vector:1:3:ccc")
	assert.True(t, ok)
	_, ok = c.Get("llm:1:2:ddd")
	assert.True(t, ok)
}

func TestMemoryCache_Purge(t *testing.T) {
	c := NewMemoryCache(10, time.Hour)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("key-%d", i), []byte("v"), 0)
	}

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"vector:1:2:*", "vector:1:2:abc", true},
		{"vector:1:2:*", "vector:1:20:abc", false},
		{"vector:*", "vector:1:2:abc", true},
		{"*:abc", "llm:1:2:abc", true},
		{"*:abc", "llm:1:2:abd", false},
		{"exact", "exact", true},
		{"exact", "exact-no", false},
		{"a*b*c", "a-x-b-y-c", true},
		{"a*b*c", "a-x-c-y-b", false},
		{"*", "anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchPattern(tt.pattern, tt.key))
		})
	}
}

func TestMemoryCache_ExpiredEntriesFreedBeforeEviction(t *testing.T) {
	c := NewMemoryCache(2, time.Hour)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("stale", []byte("1"), time.Minute)
	c.Set("live", []byte("2"), time.Hour)

	// stale 过期后写入第三个键，应回收 stale 而不是淘汰 live
	current = current.Add(2 * time.Minute)
	c.Set("fresh", []byte("3"), time.Hour)

	_, ok := c.Get("live")
	assert.True(t, ok, "存活条目不应为过期条目让位")
	_, ok = c.Get("fresh")
	assert.True(t, ok)
	_, ok = c.Get("stale")
	assert.False(t, ok)
}

func TestMemoryCache_SweepOnRead(t *testing.T) {
	c := NewMemoryCache(10, time.Hour)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)

	// 读取任意键都会清掉全部过期条目
	current = current.Add(2 * time.Minute)
	_, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "过期条目应在读取时被整体清除")
}
