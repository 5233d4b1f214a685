package embedding

import (
	"context"
	"log/slog"
	"time"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
	"github.com/olivia-docs/backend/internal/infrastructure/cache"
	"github.com/olivia-docs/backend/internal/infrastructure/config"
	"github.com/olivia-docs/backend/internal/infrastructure/log"
)

// 确保 CachedEmbedder 实现了 domainRAG.Embedder 接口
var _ domainRAG.Embedder = (*CachedEmbedder)(nil)

// CachedEmbedder 带分层缓存的向量化器
// 同一文本在同一模型下的向量是确定的，缓存命中可省去一次远程调用
type CachedEmbedder struct {
	client *Client
	cache  *cache.TieredCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedEmbedder 创建带缓存的向量化器
func NewCachedEmbedder(client *Client, tiered *cache.TieredCache, cfg *config.CacheConfig) *CachedEmbedder {
	return &CachedEmbedder{
		client: client,
		cache:  tiered,
		ttl:    time.Duration(cfg.EmbeddingTTL) * time.Second,
		logger: log.NewModuleLogger("embedding", "cached"),
	}
}

// EmbedQuery 向量化单条查询文本
func (e *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := cache.EmbedKey(e.client.Model(), text)

	var vector []float32
	if e.cache.Get(key, &vector) {
		e.logger.Debug("Embedding cache hit", "key", key)
		return vector, nil
	}

	vectors, err := e.client.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	vector = vectors[0]

	if err := e.cache.Set(key, vector, e.ttl); err != nil {
		e.logger.Warn("Failed to cache embedding", "key", key, "error", err)
	}
	return vector, nil
}

// EmbedDocuments 批量向量化文档分块
// 整批作为一个缓存单元，重复摄取同一文档时整批命中
func (e *CachedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	key := cache.BatchEmbedKey(e.client.Model(), texts)

	var vectors [][]float32
	if e.cache.Get(key, &vectors) && len(vectors) == len(texts) {
		e.logger.Debug("Batch embedding cache hit", "batch_size", len(texts))
		return vectors, nil
	}

	vectors, err := e.client.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Set(key, vectors, e.ttl); err != nil {
		e.logger.Warn("Failed to cache batch embedding", "key", key, "error", err)
	}
	return vectors, nil
}
