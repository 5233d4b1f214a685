package progress

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
	"github.com/olivia-docs/backend/internal/infrastructure/cache"
	"github.com/olivia-docs/backend/internal/infrastructure/config"
	"github.com/olivia-docs/backend/internal/infrastructure/storage"
)

func setupService(t *testing.T) (*Service, *Hub, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "progress_test_*")
	require.NoError(t, err)

	db, err := sql.Open("sqlite", filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)

	cfg := &config.CacheConfig{MaxSize: 100, DefaultTTL: 3600, ProgressTTL: 300}
	tiered := cache.NewTieredCache(cfg, storage.NewCacheStore(db))

	hub := NewHub()
	hub.Start()
	svc := NewService(hub, tiered, cfg)

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}
	return svc, hub, cleanup
}

func TestService_EmitProgress_Broadcasts(t *testing.T) {
	svc, hub, cleanup := setupService(t)
	defer cleanup()

	conn := &Connection{UserID: 1, Send: make(chan []byte, 4)}
	hub.Register(conn)
	waitForSubscribers(t, hub, 1, 1)

	svc.EmitProgress(1, domainRAG.ProgressChunking, "Chunking document", "task-1")

	select {
	case <-conn.Send:
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive progress event")
	}
}

func TestService_EmitProgress_CachesForPolling(t *testing.T) {
	svc, _, cleanup := setupService(t)
	defer cleanup()

	// 无任何订阅者时事件仍然写入轮询缓存
	svc.EmitProgress(1, domainRAG.ProgressEmbedding, "Embedding chunks", "task-1")

	event := svc.GetProgress("task-1")
	require.NotNil(t, event)
	assert.Equal(t, domainRAG.ProgressEmbedding, event.Progress)
	assert.Equal(t, "Embedding chunks", event.Message)
	assert.True(t, event.IsProcessing)
	assert.NotZero(t, event.Timestamp)
}

func TestService_EmitProgress_TerminalStates(t *testing.T) {
	svc, _, cleanup := setupService(t)
	defer cleanup()

	svc.EmitProgress(1, domainRAG.ProgressDone, "Done", "task-done")
	done := svc.GetProgress("task-done")
	require.NotNil(t, done)
	assert.False(t, done.IsProcessing, "完成状态不应标记为处理中")

	svc.EmitProgress(1, domainRAG.ProgressFailed, "no content extracted", "task-failed")
	failed := svc.GetProgress("task-failed")
	require.NotNil(t, failed)
	assert.False(t, failed.IsProcessing, "失败状态不应标记为处理中")
	assert.Equal(t, domainRAG.ProgressFailed, failed.Progress)
}

func TestService_GetProgress_Missing(t *testing.T) {
	svc, _, cleanup := setupService(t)
	defer cleanup()

	assert.Nil(t, svc.GetProgress("unknown-task"))
}

func TestService_EmitProgress_OverwritesPrevious(t *testing.T) {
	svc, _, cleanup := setupService(t)
	defer cleanup()

	svc.EmitProgress(1, domainRAG.ProgressAnalyzing, "Analyzing", "task-1")
	svc.EmitProgress(1, domainRAG.ProgressStoring, "Storing", "task-1")

	event := svc.GetProgress("task-1")
	require.NotNil(t, event)
	assert.Equal(t, domainRAG.ProgressStoring, event.Progress, "轮询应返回最近一次进度")
}
