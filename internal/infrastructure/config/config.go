package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// 环境变量名定义
const (
	// EnvHTTPPort HTTP 端口
	EnvHTTPPort = "OLIVIA_HTTP_PORT"
	// EnvConfigFile 配置文件路径
	EnvConfigFile = "OLIVIA_CONFIG"
	// EnvLLMAPIKey LLM API 密钥
	EnvLLMAPIKey = "OLIVIA_LLM_API_KEY"
	// EnvEmbeddingAPIKey Embedding API 密钥
	EnvEmbeddingAPIKey = "OLIVIA_EMBEDDING_API_KEY"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Cache     CacheConfig     `yaml:"cache"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort string `yaml:"http_port"` // 固定端口，用于单例锁
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// WebSocketConfig WebSocket 配置
type WebSocketConfig struct {
	ReadBufferSize  int `yaml:"read_buffer_size"`
	WriteBufferSize int `yaml:"write_buffer_size"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	// MaxSize 内存层最大条目数
	MaxSize int `yaml:"max_size"`
	// DefaultTTL 内存层默认过期时间（秒）
	DefaultTTL int `yaml:"default_ttl"`

	// 各命名空间持久层 TTL（秒）
	LLMTTL         int `yaml:"llm_ttl"`
	EmbeddingTTL   int `yaml:"embedding_ttl"`
	ChunksTTL      int `yaml:"chunks_ttl"`
	SessionTTL     int `yaml:"session_ttl"`
	VectorTTL      int `yaml:"vector_ttl"`
	TranslationTTL int `yaml:"translation_ttl"`
	ProgressTTL    int `yaml:"progress_ttl"`

	// SemanticEnabled 语义答案缓存开关
	SemanticEnabled bool `yaml:"semantic_enabled"`
	// SemanticThreshold 语义缓存命中相似度阈值
	SemanticThreshold float32 `yaml:"semantic_threshold"`
}

// RetrievalConfig 检索配置
type RetrievalConfig struct {
	// TopK 默认检索条数
	TopK int `yaml:"top_k"`
	// MaxTopK 检索条数上限
	MaxTopK int `yaml:"max_top_k"`
	// MinScore 相似度过滤下限
	MinScore float32 `yaml:"min_score"`
}

// IngestionConfig 摄取配置
type IngestionConfig struct {
	// ChunkSize 分块大小（字符数）
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap 相邻块重叠字符数
	ChunkOverlap int `yaml:"chunk_overlap"`
	// BatchSize 向量写入批大小
	BatchSize int `yaml:"batch_size"`
}

// EmbeddingConfig Embedding 服务配置
type EmbeddingConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	// Timeout 单次请求超时（秒）
	Timeout int `yaml:"timeout"`
}

// LLMConfig 大模型配置
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	// MaxContextTokens 生成上下文的 token 上限，超出部分按分块截断
	MaxContextTokens int `yaml:"max_context_tokens"`
	// Timeout 单次请求超时（秒）
	Timeout int `yaml:"timeout"`
}

// QdrantConfig 向量库配置
type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// DocumentsCollection 文档向量集合名
	DocumentsCollection string `yaml:"documents_collection"`
	// SemanticCacheCollection 语义缓存集合名
	SemanticCacheCollection string `yaml:"semantic_cache_collection"`
}

// NewConfig 创建配置：默认值 -> 配置文件 -> 环境变量，逐层覆盖
func NewConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := configFilePath(); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig 默认配置
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: ":18090",
		},
		Database: DatabaseConfig{
			Path: "", // 空表示使用数据目录下的默认路径
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		Cache: CacheConfig{
			MaxSize:           10000,
			DefaultTTL:        3600,
			LLMTTL:            86400,
			EmbeddingTTL:      86400,
			ChunksTTL:         86400,
			SessionTTL:        86400,
			VectorTTL:         3600,
			TranslationTTL:    604800,
			ProgressTTL:       300,
			SemanticEnabled:   false,
			SemanticThreshold: 0.92,
		},
		Retrieval: RetrievalConfig{
			TopK:     20,
			MaxTopK:  50,
			MinScore: 0.0,
		},
		Ingestion: IngestionConfig{
			ChunkSize:    768,
			ChunkOverlap: 150,
			BatchSize:    100,
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "http://localhost:11434/v1",
			Model:     "nomic-embed-text",
			Dimension: 768,
			Timeout:   60,
		},
		LLM: LLMConfig{
			BaseURL:          "http://localhost:11434/v1",
			Model:            "qwen2.5:7b",
			Temperature:      0.0,
			MaxTokens:        2048,
			MaxContextTokens: 6144,
			Timeout:          300,
		},
		Qdrant: QdrantConfig{
			Host:                    "localhost",
			Port:                    6334,
			DocumentsCollection:     "documents",
			SemanticCacheCollection: "semantic_cache",
		},
	}
}

// configFilePath 解析配置文件路径：环境变量优先，否则数据目录下的 config.yaml
func configFilePath() string {
	if path := os.Getenv(EnvConfigFile); path != "" {
		return path
	}
	path := filepath.Join(GetDataDir(), "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// loadConfigFile 从 YAML 文件加载配置
func loadConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}
	return nil
}

// applyEnvOverrides 环境变量覆盖（密钥类配置优先走环境变量）
func applyEnvOverrides(cfg *Config) {
	if port := os.Getenv(EnvHTTPPort); port != "" {
		cfg.Server.HTTPPort = normalizePort(port)
	}
	if key := os.Getenv(EnvLLMAPIKey); key != "" {
		cfg.LLM.APIKey = key
	}
	if key := os.Getenv(EnvEmbeddingAPIKey); key != "" {
		cfg.Embedding.APIKey = key
	}
}

// normalizePort 兼容 "18090" 与 ":18090" 两种写法
func normalizePort(port string) string {
	if _, err := strconv.Atoi(port); err == nil {
		return ":" + port
	}
	return port
}

// EmbeddingTimeout Embedding 请求超时
func (c *EmbeddingConfig) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// LLMTimeout LLM 请求超时
func (c *LLMConfig) LLMTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// NewServerConfig 创建服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewDatabaseConfig 创建数据库配置
func NewDatabaseConfig(cfg *Config) *DatabaseConfig {
	return &cfg.Database
}

// NewWebSocketConfig 创建 WebSocket 配置
func NewWebSocketConfig(cfg *Config) *WebSocketConfig {
	return &cfg.WebSocket
}

// NewCacheConfig 创建缓存配置
func NewCacheConfig(cfg *Config) *CacheConfig {
	return &cfg.Cache
}

// NewRetrievalConfig 创建检索配置
func NewRetrievalConfig(cfg *Config) *RetrievalConfig {
	return &cfg.Retrieval
}

// NewIngestionConfig 创建摄取配置
func NewIngestionConfig(cfg *Config) *IngestionConfig {
	return &cfg.Ingestion
}

// NewEmbeddingConfig 创建 Embedding 配置
func NewEmbeddingConfig(cfg *Config) *EmbeddingConfig {
	return &cfg.Embedding
}

// NewLLMConfig 创建 LLM 配置
func NewLLMConfig(cfg *Config) *LLMConfig {
	return &cfg.LLM
}

// NewQdrantConfig 创建 Qdrant 配置
func NewQdrantConfig(cfg *Config) *QdrantConfig {
	return &cfg.Qdrant
}
