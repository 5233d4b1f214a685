package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"
)

// CacheStore 持久缓存存储，基于 app_cache 表
// 进程重启后缓存仍然可用，由上层分层缓存决定读写策略
type CacheStore struct {
	db *sql.DB

	initOnce sync.Once
	initErr  error

	now func() time.Time // 可注入，便于测试
}

// NewCacheStore 创建持久缓存存储
func NewCacheStore(db *sql.DB) *CacheStore {
	return &CacheStore{
		db:  db,
		now: time.Now,
	}
}

// ensure 惰性建表：首次访问时确认表结构存在
func (s *CacheStore) ensure() error {
	s.initOnce.Do(func() {
		s.initErr = InitSchema(s.db)
	})
	return s.initErr
}

// Get 读取缓存值，过期条目视为未命中
func (s *CacheStore) Get(key string) ([]byte, bool, error) {
	data, _, ok, err := s.GetWithTTL(key)
	return data, ok, err
}

// GetWithTTL 读取缓存值与剩余存活时间
// 永不过期的条目剩余时间为 0，由调用方解释
func (s *CacheStore) GetWithTTL(key string) ([]byte, time.Duration, bool, error) {
	if err := s.ensure(); err != nil {
		return nil, 0, false, err
	}

	query := `
		SELECT value, expires_at FROM app_cache
		WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)`

	now := s.now()
	var value string
	var expiresAt sql.NullInt64
	err := s.db.QueryRow(query, key, now.Unix()).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var remaining time.Duration
	if expiresAt.Valid {
		remaining = time.Duration(expiresAt.Int64-now.Unix()) * time.Second
	}
	return []byte(value), remaining, true, nil
}

// Set 写入缓存值，ttl <= 0 表示永不过期
func (s *CacheStore) Set(key string, value []byte, ttl time.Duration) error {
	if err := s.ensure(); err != nil {
		return err
	}

	var expiresAt any
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).Unix()
	}

	query := `INSERT OR REPLACE INTO app_cache (key, value, expires_at) VALUES (?, ?, ?)`
	if _, err := s.db.Exec(query, key, string(value), expiresAt); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// Delete 删除单个缓存条目
func (s *CacheStore) Delete(key string) error {
	if err := s.ensure(); err != nil {
		return err
	}

	if _, err := s.db.Exec(`DELETE FROM app_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// DeleteByPattern 按模式删除缓存条目
// 模式中的 '*' 为通配符，其余字符按字面匹配，返回删除条数
func (s *CacheStore) DeleteByPattern(pattern string) (int64, error) {
	if err := s.ensure(); err != nil {
		return 0, err
	}

	like := patternToLike(pattern)
	result, err := s.db.Exec(`DELETE FROM app_cache WHERE key LIKE ? ESCAPE '\'`, like)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache entries by pattern: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// CleanupExpired 清理已过期条目，返回清理条数
func (s *CacheStore) CleanupExpired() (int64, error) {
	if err := s.ensure(); err != nil {
		return 0, err
	}

	result, err := s.db.Exec(
		`DELETE FROM app_cache WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		s.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired cache entries: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// Count 统计当前条目总数（含已过期未清理的条目）
func (s *CacheStore) Count() (int64, error) {
	if err := s.ensure(); err != nil {
		return 0, err
	}

	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM app_cache`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return count, nil
}

// patternToLike 将 '*' 通配模式转换为 SQL LIKE 模式
// LIKE 元字符 '%'、'_' 以及转义符本身需要先转义
func patternToLike(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteByte('%')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
