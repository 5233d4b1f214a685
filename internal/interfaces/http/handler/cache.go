package handler

import (
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/olivia-docs/backend/internal/infrastructure/cache"
	"github.com/olivia-docs/backend/internal/infrastructure/log"
	"github.com/olivia-docs/backend/internal/interfaces/http/response"
)

// CacheHandler 缓存运维处理器
type CacheHandler struct {
	tiered *cache.TieredCache
	logger *slog.Logger
}

// NewCacheHandler 创建缓存运维处理器
func NewCacheHandler(tiered *cache.TieredCache) *CacheHandler {
	return &CacheHandler{
		tiered: tiered,
		logger: log.NewModuleLogger("http", "cache_handler"),
	}
}

// Stats 缓存命中统计
// GET /api/v1/rag/cache/stats
func (h *CacheHandler) Stats(c *gin.Context) {
	response.Success(c, h.tiered.Stats())
}

// Cleanup 清理持久层过期条目
// POST /api/v1/rag/cache/cleanup
func (h *CacheHandler) Cleanup(c *gin.Context) {
	removed, err := h.tiered.CleanupExpired()
	if err != nil {
		h.logger.Error("cache cleanup failed", "error", err)
		response.Error(c, http.StatusInternalServerError, 500, err.Error())
		return
	}
	response.Success(c, gin.H{"removed": removed})
}

// ClearPattern 按模式清除缓存
// DELETE /api/v1/rag/cache?pattern=vector:1:2:*
func (h *CacheHandler) ClearPattern(c *gin.Context) {
	pattern := c.Query("pattern")
	if pattern == "" {
		response.Error(c, http.StatusBadRequest, 400, "missing pattern")
		return
	}
	cleared := h.tiered.ClearPattern(pattern)
	response.Success(c, gin.H{"cleared": cleared})
}
