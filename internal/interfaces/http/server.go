package http

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/olivia-docs/backend/internal/infrastructure/config"
	"github.com/olivia-docs/backend/internal/infrastructure/log"
	"github.com/olivia-docs/backend/internal/interfaces/http/handler"
	"github.com/olivia-docs/backend/internal/interfaces/http/middleware"
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	cfg *config.ServerConfig,
	chatHandler *handler.ChatHandler,
	documentHandler *handler.DocumentHandler,
	progressHandler *handler.ProgressHandler,
	cacheHandler *handler.CacheHandler,
) *HTTPServer {
	router := gin.Default()
	router.Use(middleware.EnsureUTF8Body())

	logger := log.NewModuleLogger("http", "server")

	// 注册路由
	api := router.Group("/api/v1")
	{
		rag := api.Group("/rag")
		{
			// 问答
			rag.POST("/chat", chatHandler.Stream)
			rag.POST("/chat/complete", chatHandler.Complete)
			rag.POST("/sources", chatHandler.Sources)

			// 文档管理
			rag.POST("/documents", documentHandler.Upload)
			rag.GET("/documents", documentHandler.List)
			rag.DELETE("/documents/:id", documentHandler.Delete)
			rag.DELETE("/collections/:id/vectors", documentHandler.DeleteCollectionVectors)

			// 摄取进度轮询
			rag.GET("/progress/:task_id", progressHandler.Poll)

			// 缓存运维
			rag.GET("/cache/stats", cacheHandler.Stats)
			rag.POST("/cache/cleanup", cacheHandler.Cleanup)
			rag.DELETE("/cache", cacheHandler.ClearPattern)
		}
	}

	// 进度推送 WebSocket
	router.GET("/ws/progress/:user_id", progressHandler.Subscribe)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &HTTPServer{
		router:   router,
		httpPort: cfg.HTTPPort,
		logger:   logger,
	}
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:    s.httpPort,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	return s.server.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
