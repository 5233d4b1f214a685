package wire

import (
	"context"
	"database/sql"
	"time"

	"log/slog"

	applog "github.com/olivia-docs/backend/internal/infrastructure/log"
	"github.com/olivia-docs/backend/internal/infrastructure/progress"
	"github.com/olivia-docs/backend/internal/infrastructure/vector"
	"github.com/olivia-docs/backend/internal/interfaces"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer  *interfaces.HTTPServer
	progressHub *progress.Hub
	qdrantStore *vector.QdrantStore
	db          *sql.DB
	logger      *slog.Logger
}

// NewApp 创建应用实例
func NewApp(
	httpServer *interfaces.HTTPServer,
	progressHub *progress.Hub,
	qdrantStore *vector.QdrantStore,
	db *sql.DB,
) *App {
	return &App{
		HTTPServer:  httpServer,
		progressHub: progressHub,
		qdrantStore: qdrantStore,
		db:          db,
		logger:      applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动所有服务
func (a *App) Start() error {
	a.logger.Info("Starting Olivia backend application")

	// 确保向量集合存在
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.qdrantStore.EnsureCollections(ctx); err != nil {
		a.logger.Error("Failed to ensure vector collections",
			"error", err,
		)
	}

	// 启动进度推送 Hub
	a.progressHub.Start()

	// 启动 HTTP 服务器（goroutine）
	go func() {
		if err := a.HTTPServer.Start(); err != nil {
			a.logger.Error("Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	a.logger.Info("Olivia backend application started successfully")
	return nil
}

// Stop 停止所有服务
func (a *App) Stop() error {
	a.logger.Info("Stopping Olivia backend application")

	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop HTTP server",
			"error", err,
		)
		return err
	}

	if err := a.qdrantStore.Close(); err != nil {
		a.logger.Error("Failed to close vector store connection",
			"error", err,
		)
	}

	// 关闭数据库连接
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database connection",
				"error", err,
			)
			return err
		}
	}

	a.logger.Info("Olivia backend application stopped successfully")
	return nil
}
