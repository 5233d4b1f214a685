package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"

	appRAG "github.com/olivia-docs/backend/internal/application/rag"
	"github.com/olivia-docs/backend/internal/infrastructure/log"
	"github.com/olivia-docs/backend/internal/interfaces/http/response"
)

// ChatHandler 问答处理器
type ChatHandler struct {
	chatService *appRAG.ChatService
	logger      *slog.Logger
}

// NewChatHandler 创建问答处理器
func NewChatHandler(chatService *appRAG.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      log.NewModuleLogger("http", "chat_handler"),
	}
}

// ChatRequest 问答请求体
type ChatRequest struct {
	Query        string   `json:"query" binding:"required"`
	UserID       int64    `json:"user_id"`
	CollectionID int64    `json:"collection_id"`
	Temperature  *float32 `json:"temperature,omitempty"`
	TopK         *int     `json:"top_k,omitempty"`
	CustomPrompt string   `json:"custom_prompt,omitempty"`
	WithSources  bool     `json:"with_sources,omitempty"`
}

func (r *ChatRequest) toServiceRequest() appRAG.ChatRequest {
	return appRAG.ChatRequest{
		Query:        r.Query,
		UserID:       r.UserID,
		CollectionID: r.CollectionID,
		Temperature:  r.Temperature,
		TopK:         r.TopK,
		CustomPrompt: r.CustomPrompt,
		WithSources:  r.WithSources,
	}
}

// Stream 流式问答（SSE）
// POST /api/v1/rag/chat
// 事件按 "data: {json}\n\n" 帧下发：可选 sources 帧先行，
// 随后是若干 chunk 帧；异常以 error 帧结束。
func (h *ChatHandler) Stream(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	events := h.chatService.StreamChat(c.Request.Context(), req.toServiceRequest())

	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		data, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("failed to marshal stream event", "error", err)
			return false
		}
		if _, err := w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			return false
		}
		return true
	})
}

// Sources 只检索不生成，返回引用列表
// POST /api/v1/rag/sources
func (h *ChatHandler) Sources(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	citations, info, err := h.chatService.Sources(c.Request.Context(), req.toServiceRequest())
	if err != nil {
		h.logger.Error("sources request failed", "error", err)
		response.Error(c, http.StatusInternalServerError, 500, err.Error())
		return
	}

	response.Success(c, gin.H{
		"sources":        citations,
		"retrieval_info": info,
	})
}

// Complete 同步问答
// POST /api/v1/rag/chat/complete
func (h *ChatHandler) Complete(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	result, err := h.chatService.Chat(c.Request.Context(), req.toServiceRequest())
	if err != nil {
		h.logger.Error("chat request failed", "error", err)
		response.Error(c, http.StatusInternalServerError, 500, err.Error())
		return
	}

	response.Success(c, result)
}
