package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appRAG "github.com/olivia-docs/backend/internal/application/rag"
	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
	"github.com/olivia-docs/backend/internal/infrastructure/config"
	"github.com/olivia-docs/backend/internal/infrastructure/log"
	"github.com/olivia-docs/backend/internal/interfaces/http/response"
)

// DocumentHandler 文档管理处理器
type DocumentHandler struct {
	ingestion *appRAG.IngestionService
	docRepo   domainRAG.DocumentRepository
	logger    *slog.Logger
}

// NewDocumentHandler 创建文档管理处理器
func NewDocumentHandler(ingestion *appRAG.IngestionService, docRepo domainRAG.DocumentRepository) *DocumentHandler {
	return &DocumentHandler{
		ingestion: ingestion,
		docRepo:   docRepo,
		logger:    log.NewModuleLogger("http", "document_handler"),
	}
}

// Upload 上传并异步摄取文档
// POST /api/v1/rag/documents
// 立即返回 task_id，摄取进度经 WebSocket 或轮询接口获取
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, collectionID, ok := ownerParams(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, 400, "missing file field")
		return
	}

	docID := uuid.NewString()
	taskID := docID
	destPath := filepath.Join(config.GetUploadDir(), docID+"_"+filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, destPath); err != nil {
		h.logger.Error("failed to save uploaded file", "error", err)
		response.Error(c, http.StatusInternalServerError, 500, "failed to save uploaded file")
		return
	}

	if err := h.ingestion.NewDocumentRecord(userID, collectionID, docID, file.Filename, file.Size); err != nil {
		h.logger.Error("failed to create document record", "error", err)
		response.Error(c, http.StatusInternalServerError, 500, "failed to create document record")
		return
	}

	// 摄取在后台进行，完成或失败后清理暂存文件
	// 请求上下文随响应结束取消，后台任务用独立上下文
	go func() {
		defer os.Remove(destPath)
		ctx := log.WithTaskID(log.WithUserID(context.Background(), strconv.FormatInt(userID, 10)), taskID)
		if _, err := h.ingestion.IngestDocument(ctx, destPath, userID, collectionID, docID, taskID); err != nil {
			h.logger.Error("background ingestion failed",
				"document_id", docID, "file", file.Filename, "error", err)
		}
	}()

	response.Success(c, gin.H{
		"task_id":     taskID,
		"document_id": docID,
		"filename":    file.Filename,
		"status":      domainRAG.DocumentStatusProcessing,
	})
}

// List 列出某集合下的文档
// GET /api/v1/rag/documents
func (h *DocumentHandler) List(c *gin.Context) {
	userID, collectionID, ok := ownerParams(c)
	if !ok {
		return
	}

	docs, err := h.docRepo.ListByOwner(userID, collectionID)
	if err != nil {
		h.logger.Error("failed to list documents", "error", err)
		response.Error(c, http.StatusInternalServerError, 500, "failed to list documents")
		return
	}
	response.Success(c, docs)
}

// Delete 删除单个文档及其向量
// DELETE /api/v1/rag/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	docID := c.Param("id")
	doc, err := h.docRepo.FindByID(docID)
	if err != nil {
		h.logger.Error("failed to load document", "document_id", docID, "error", err)
		response.Error(c, http.StatusInternalServerError, 500, "failed to load document")
		return
	}
	if doc == nil {
		response.Error(c, http.StatusNotFound, 404, "document not found")
		return
	}

	if err := h.ingestion.DeleteDocument(c.Request.Context(), doc.UserID, doc.CollectionID, doc.ID, doc.Filename); err != nil {
		h.logger.Error("failed to delete document", "document_id", docID, "error", err)
		response.Error(c, http.StatusInternalServerError, 500, err.Error())
		return
	}
	response.Success(c, gin.H{"deleted": docID})
}

// DeleteCollectionVectors 删除集合下全部向量
// DELETE /api/v1/rag/collections/:id/vectors
func (h *DocumentHandler) DeleteCollectionVectors(c *gin.Context) {
	collectionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid collection id")
		return
	}
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid user_id")
		return
	}

	if err := h.ingestion.DeleteCollectionVectors(c.Request.Context(), userID, collectionID); err != nil {
		h.logger.Error("failed to delete collection vectors",
			"collection_id", collectionID, "error", err)
		response.Error(c, http.StatusInternalServerError, 500, err.Error())
		return
	}
	response.Success(c, gin.H{"collection_id": collectionID})
}

// ownerParams 解析所有者参数（form 或 query 均可）
func ownerParams(c *gin.Context) (int64, int64, bool) {
	userRaw := c.PostForm("user_id")
	if userRaw == "" {
		userRaw = c.Query("user_id")
	}
	collRaw := c.PostForm("collection_id")
	if collRaw == "" {
		collRaw = c.Query("collection_id")
	}

	userID, err := strconv.ParseInt(userRaw, 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid user_id")
		return 0, 0, false
	}
	collectionID, err := strconv.ParseInt(collRaw, 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid collection_id")
		return 0, 0, false
	}
	return userID, collectionID, true
}
