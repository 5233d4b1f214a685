package rag

import (
	"context"
	"encoding/json"
	"log/slog"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
	"github.com/olivia-docs/backend/internal/infrastructure/config"
	"github.com/olivia-docs/backend/internal/infrastructure/log"
	"github.com/olivia-docs/backend/internal/infrastructure/vector"
)

// CachedAnswer 语义缓存命中的完整回答
type CachedAnswer struct {
	Response string
	Sources  []domainRAG.SourceCitation
	Score    float32
}

// SemanticCache 语义回答缓存
// 按查询向量相似度匹配历史问答，默认关闭；任何内部错误都
// 按未命中处理，不得影响主链路。
type SemanticCache struct {
	store     *vector.QdrantStore
	enabled   bool
	threshold float32
	logger    *slog.Logger
}

// NewSemanticCache 创建语义回答缓存
func NewSemanticCache(cfg *config.CacheConfig, store *vector.QdrantStore) *SemanticCache {
	return &SemanticCache{
		store:     store,
		enabled:   cfg.SemanticEnabled,
		threshold: cfg.SemanticThreshold,
		logger:    log.NewModuleLogger("rag", "semantic_cache"),
	}
}

// Lookup 查找语义相近的历史回答
// 关闭、未命中、分数低于阈值或内部出错都返回 nil
func (c *SemanticCache) Lookup(ctx context.Context, query string, userID, collectionID int64) *CachedAnswer {
	if !c.enabled {
		return nil
	}

	hit, err := c.store.SemanticSearch(ctx, query, userID, collectionID)
	if err != nil {
		c.logger.Error("semantic cache lookup failed", "error", err)
		return nil
	}
	if hit == nil || hit.Score < c.threshold {
		return nil
	}

	c.logger.Info("semantic cache hit", "query", truncateQuery(query), "score", hit.Score)

	answer := &CachedAnswer{Response: hit.Answer, Score: hit.Score}
	if hit.SourcesJSON != "" {
		if err := json.Unmarshal([]byte(hit.SourcesJSON), &answer.Sources); err != nil {
			c.logger.Warn("failed to decode cached sources", "error", err)
		}
	}
	return answer
}

// Save 把问答对写入语义缓存
// 失败只记日志，主链路结果已经产出，不再回滚
func (c *SemanticCache) Save(ctx context.Context, query, response string, sources []domainRAG.SourceCitation, userID, collectionID int64) {
	if !c.enabled || response == "" {
		return
	}

	sourcesJSON := "[]"
	if len(sources) > 0 {
		if data, err := json.Marshal(sources); err == nil {
			sourcesJSON = string(data)
		}
	}

	if err := c.store.StoreSemanticAnswer(ctx, query, response, sourcesJSON, userID, collectionID); err != nil {
		c.logger.Error("failed to save to semantic cache", "error", err)
		return
	}
	c.logger.Debug("saved query to semantic cache", "query", truncateQuery(query))
}

// truncateQuery 日志用的查询截断
func truncateQuery(query string) string {
	const maxLogQuery = 50
	if len(query) <= maxLogQuery {
		return query
	}
	return query[:maxLogQuery] + "..."
}
