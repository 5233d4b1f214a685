package progress

import (
	"log/slog"
	"time"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
	"github.com/olivia-docs/backend/internal/infrastructure/cache"
	"github.com/olivia-docs/backend/internal/infrastructure/config"
	"github.com/olivia-docs/backend/internal/infrastructure/log"
)

// 确保 Service 实现了 domainRAG.ProgressSink 接口
var _ domainRAG.ProgressSink = (*Service)(nil)

// Service 摄取进度服务
// 事件实时推送到用户的 WebSocket 订阅，同时写入缓存供断连客户端轮询
type Service struct {
	hub    *Hub
	cache  *cache.TieredCache
	ttl    time.Duration
	logger *slog.Logger

	now func() time.Time // 可注入，便于测试
}

// NewService 创建进度服务
func NewService(hub *Hub, tiered *cache.TieredCache, cfg *config.CacheConfig) *Service {
	ttl := time.Duration(cfg.ProgressTTL) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		hub:    hub,
		cache:  tiered,
		ttl:    ttl,
		logger: log.NewModuleLogger("progress", "service"),
		now:    time.Now,
	}
}

// EmitProgress 发布一次进度事件
// progress 为 -1 表示失败终止；推送失败不阻断摄取流程
func (s *Service) EmitProgress(userID int64, progress int, message, taskID string) {
	event := domainRAG.IngestionProgress{
		Type:         "progress",
		Progress:     progress,
		Message:      message,
		TaskID:       taskID,
		IsProcessing: progress >= 0 && progress < domainRAG.ProgressDone,
		Timestamp:    s.now().Unix(),
	}

	if err := s.hub.BroadcastToUser(userID, event); err != nil {
		s.logger.Warn("Failed to broadcast progress event",
			"user_id", userID,
			"task_id", taskID,
			"error", err,
		)
	}

	// 轮询兜底：断连的客户端可按 task_id 查询最近一次进度
	if err := s.cache.Set(cache.ProgressKey(taskID), event, s.ttl); err != nil {
		s.logger.Warn("Failed to cache progress event",
			"task_id", taskID,
			"error", err,
		)
	}

	s.logger.Debug("Progress emitted",
		"user_id", userID,
		"task_id", taskID,
		"progress", progress,
		"message", message,
	)
}

// GetProgress 按任务 ID 查询最近一次进度，未找到返回 nil
func (s *Service) GetProgress(taskID string) *domainRAG.IngestionProgress {
	var event domainRAG.IngestionProgress
	if !s.cache.Get(cache.ProgressKey(taskID), &event) {
		return nil
	}
	return &event
}
