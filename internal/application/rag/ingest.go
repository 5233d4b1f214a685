package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
	"github.com/olivia-docs/backend/internal/infrastructure/cache"
	"github.com/olivia-docs/backend/internal/infrastructure/config"
	"github.com/olivia-docs/backend/internal/infrastructure/log"
)

// IngestionService 文档摄取服务
// 抽取 → 分块 → 向量化入库的流水线，沿途发布进度事件并维护
// 文档记录。摄取成功后清理该所有者的检索与回答缓存。
type IngestionService struct {
	loader      *DocumentLoader
	splitter    *ChunkSplitter
	vectorIndex domainRAG.VectorIndex
	docRepo     domainRAG.DocumentRepository
	tiered      *cache.TieredCache
	progress    domainRAG.ProgressSink
	cfg         *config.IngestionConfig
	logger      *slog.Logger
}

// NewIngestionService 创建文档摄取服务
func NewIngestionService(
	loader *DocumentLoader,
	splitter *ChunkSplitter,
	vectorIndex domainRAG.VectorIndex,
	docRepo domainRAG.DocumentRepository,
	tiered *cache.TieredCache,
	progress domainRAG.ProgressSink,
	cfg *config.IngestionConfig,
) *IngestionService {
	return &IngestionService{
		loader:      loader,
		splitter:    splitter,
		vectorIndex: vectorIndex,
		docRepo:     docRepo,
		tiered:      tiered,
		progress:    progress,
		cfg:         cfg,
		logger:      log.NewModuleLogger("rag", "ingestion"),
	}
}

// 文件大小阈值
const (
	sizeLargeFile = 10 * 1024 * 1024
	sizeMidFile   = 5 * 1024 * 1024
	sizeHugeFile  = 20 * 1024 * 1024
)

// IngestDocument 摄取单个文档，返回写入的分块数
// docID 对应文档记录，状态随摄取推进更新；taskID 用于进度事件。
// 任一阶段失败都发布 -1 进度并把文档记录标记为失败。
func (s *IngestionService) IngestDocument(ctx context.Context, filePath string, userID, collectionID int64, docID, taskID string) (int, error) {
	count, err := s.ingest(ctx, filePath, userID, collectionID, docID, taskID)
	if err != nil {
		s.progress.EmitProgress(userID, domainRAG.ProgressFailed, fmt.Sprintf("Ingestion failed: %v", err), taskID)
		if docID != "" {
			if repoErr := s.docRepo.UpdateStatus(docID, domainRAG.DocumentStatusFailed, err.Error(), 0); repoErr != nil {
				s.logger.Error("failed to mark document as failed", "document_id", docID, "error", repoErr)
			}
		}
		return 0, err
	}
	return count, nil
}

func (s *IngestionService) ingest(ctx context.Context, filePath string, userID, collectionID int64, docID, taskID string) (int, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return 0, fmt.Errorf("stat file: %w", err)
	}
	fileSize := info.Size()
	filename := filepath.Base(filePath)

	s.logger.Info("ingesting document",
		"file", filename, "size_bytes", fileSize,
		"user_id", userID, "collection_id", collectionID)

	s.progress.EmitProgress(userID, domainRAG.ProgressAnalyzing, "Extraction started", taskID)

	pages, err := s.loader.Load(filePath)
	if err != nil {
		return 0, fmt.Errorf("extract document: %w", err)
	}

	s.progress.EmitProgress(userID, domainRAG.ProgressChunking, "Chunking started", taskID)

	chunkSize := s.optimalChunkSize(fileSize)
	chunks, err := s.buildChunks(pages, filename, userID, collectionID, chunkSize)
	if err != nil {
		return 0, err
	}

	s.progress.EmitProgress(userID, domainRAG.ProgressChunked, "Chunking completed", taskID)

	if len(chunks) == 0 {
		return 0, fmt.Errorf("no content extracted from document: %s", filename)
	}

	s.progress.EmitProgress(userID, domainRAG.ProgressEmbedding, "Embedding started", taskID)

	batchSize := s.batchSizeFor(fileSize)
	totalBatches := (len(chunks) + batchSize - 1) / batchSize
	for i := 0; i < totalBatches; i++ {
		start := i * batchSize
		end := minInt(start+batchSize, len(chunks))
		if err := s.vectorIndex.UpsertChunks(ctx, chunks[start:end]); err != nil {
			return 0, fmt.Errorf("store batch %d/%d: %w", i+1, totalBatches, err)
		}
		pct := domainRAG.ProgressStoring + int(float64(i)/float64(totalBatches)*20)
		s.progress.EmitProgress(userID, pct, fmt.Sprintf("Storing batch %d/%d", i+1, totalBatches), taskID)
	}

	s.invalidateOwnerCaches(userID, collectionID)

	if docID != "" {
		if err := s.docRepo.UpdateStatus(docID, domainRAG.DocumentStatusReady, "", len(chunks)); err != nil {
			s.logger.Error("failed to mark document as ready", "document_id", docID, "error", err)
		}
	}

	s.progress.EmitProgress(userID, domainRAG.ProgressDone, "Vector storage completed", taskID)

	s.logger.Info("document ingested",
		"file", filename, "chunks", len(chunks), "batches", totalBatches, "chunk_size", chunkSize)
	return len(chunks), nil
}

// buildChunks 把抽取的页面切成带元数据的分块
func (s *IngestionService) buildChunks(pages []ExtractedPage, filename string, userID, collectionID int64, chunkSize int) ([]domainRAG.DocumentChunk, error) {
	estimator, estErr := GetTokenEstimator()
	if estErr != nil {
		s.logger.Warn("token estimator unavailable, chunks stored without token counts", "error", estErr)
	}

	fileType := strings.ToLower(filepath.Ext(filename))
	chunks := make([]domainRAG.DocumentChunk, 0, len(pages)*2)
	for _, page := range pages {
		pieces, err := s.splitter.Split(page.Content, chunkSize, s.cfg.ChunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("chunk page %d: %w", page.Page, err)
		}
		for _, piece := range pieces {
			tokenCount := 0
			if estimator != nil {
				tokenCount = estimator.CountTokens(piece.Text)
			}
			chunks = append(chunks, domainRAG.DocumentChunk{
				Text: piece.Text,
				Metadata: domainRAG.ChunkMetadata{
					UserID:       userID,
					CollectionID: collectionID,
					Source:       filename,
					FileType:     fileType,
					Page:         page.Page,
					TotalPages:   len(pages),
					StartIndex:   piece.StartIndex,
					TokenCount:   tokenCount,
				},
			})
		}
	}
	return chunks, nil
}

// optimalChunkSize 按文件大小放大分块尺寸
// 大文件用更大的分块降低分块总数，设有绝对上限
func (s *IngestionService) optimalChunkSize(fileSize int64) int {
	base := s.cfg.ChunkSize
	switch {
	case fileSize > sizeLargeFile:
		return minInt(base*2, 1536)
	case fileSize > sizeMidFile:
		return minInt(base*3/2, 1152)
	default:
		return base
	}
}

// batchSizeFor 按文件大小收缩写入批大小，控制单批内存占用
func (s *IngestionService) batchSizeFor(fileSize int64) int {
	switch {
	case fileSize > sizeHugeFile:
		return 25
	case fileSize > sizeLargeFile:
		return 50
	default:
		return s.cfg.BatchSize
	}
}

// DeleteDocument 删除文档：向量、文档记录与关联缓存一起清掉
func (s *IngestionService) DeleteDocument(ctx context.Context, userID, collectionID int64, docID, filename string) error {
	if err := s.vectorIndex.DeleteByFilter(ctx, domainRAG.OwnerFilter{
		UserID:       userID,
		CollectionID: collectionID,
		Source:       filename,
	}); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}

	if docID != "" {
		if err := s.docRepo.DeleteByID(docID); err != nil {
			return fmt.Errorf("delete document record: %w", err)
		}
		s.tiered.Delete(cache.ChunksKey(docID))
	}

	s.invalidateOwnerCaches(userID, collectionID)
	s.logger.Info("document deleted", "file", filename, "user_id", userID, "collection_id", collectionID)
	return nil
}

// DeleteCollectionVectors 删除集合下的全部向量并清缓存
func (s *IngestionService) DeleteCollectionVectors(ctx context.Context, userID, collectionID int64) error {
	if err := s.vectorIndex.DeleteByFilter(ctx, domainRAG.OwnerFilter{
		UserID:       userID,
		CollectionID: collectionID,
	}); err != nil {
		return fmt.Errorf("delete collection vectors: %w", err)
	}

	docs, err := s.docRepo.ListByOwner(userID, collectionID)
	if err != nil {
		s.logger.Error("failed to list documents for collection cleanup", "error", err)
	} else {
		for _, doc := range docs {
			if err := s.docRepo.DeleteByID(doc.ID); err != nil {
				s.logger.Error("failed to delete document record", "document_id", doc.ID, "error", err)
			}
			s.tiered.Delete(cache.ChunksKey(doc.ID))
		}
	}

	s.invalidateOwnerCaches(userID, collectionID)
	s.tiered.Delete(cache.UserCollectionsKey(userID))
	s.logger.Info("collection vectors deleted", "user_id", userID, "collection_id", collectionID)
	return nil
}

// invalidateOwnerCaches 索引内容变化后，该所有者的检索结果缓存
// 与回答缓存全部失效
func (s *IngestionService) invalidateOwnerCaches(userID, collectionID int64) {
	vectorCleared := s.tiered.ClearPattern(cache.VectorOwnerPattern(userID, collectionID))
	llmCleared := s.tiered.ClearPattern(cache.LLMOwnerPattern(userID, collectionID))
	s.logger.Debug("owner caches invalidated",
		"user_id", userID, "collection_id", collectionID,
		"vector_entries", vectorCleared, "llm_entries", llmCleared)
}

// NewDocumentRecord 创建处理中状态的文档记录
func (s *IngestionService) NewDocumentRecord(userID, collectionID int64, docID, filename string, sizeBytes int64) error {
	now := time.Now()
	doc := &domainRAG.Document{
		ID:           docID,
		UserID:       userID,
		CollectionID: collectionID,
		Filename:     filename,
		FileType:     strings.ToLower(filepath.Ext(filename)),
		SizeBytes:    sizeBytes,
		Status:       domainRAG.DocumentStatusProcessing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.docRepo.Save(doc); err != nil {
		return fmt.Errorf("save document record: %w", err)
	}
	return nil
}
