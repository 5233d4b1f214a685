package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/olivia-docs/backend/internal/infrastructure/config"
)

// GetDBPath 获取数据库路径
// 优先使用配置中的路径，默认 <数据目录>/olivia.db
func GetDBPath(cfg *config.DatabaseConfig) string {
	if cfg != nil && cfg.Path != "" {
		return cfg.Path
	}
	return filepath.Join(config.GetDataDir(), "olivia.db")
}

// OpenDB 打开数据库连接
func OpenDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dbPath := GetDBPath(cfg)

	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ProvideDB 打开数据库并初始化表结构
func ProvideDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// InitSchema 初始化表结构
func InitSchema(db *sql.DB) error {
	// 持久缓存表：expires_at 为空表示永不过期
	createCacheSQL := `
	CREATE TABLE IF NOT EXISTS app_cache (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		expires_at INTEGER
	);`

	if _, err := db.Exec(createCacheSQL); err != nil {
		return fmt.Errorf("failed to create app_cache table: %w", err)
	}

	createCacheIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_app_cache_expires_at ON app_cache(expires_at);`

	if _, err := db.Exec(createCacheIndexSQL); err != nil {
		return fmt.Errorf("failed to create app_cache index: %w", err)
	}

	// 文档注册表
	createDocumentsSQL := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		collection_id INTEGER NOT NULL,
		filename TEXT NOT NULL,
		file_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`

	if _, err := db.Exec(createDocumentsSQL); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	createDocumentsIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(user_id, collection_id);`

	if _, err := db.Exec(createDocumentsIndexSQL); err != nil {
		return fmt.Errorf("failed to create documents index: %w", err)
	}

	return nil
}
