package handler

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/olivia-docs/backend/internal/infrastructure/config"
	"github.com/olivia-docs/backend/internal/infrastructure/log"
	"github.com/olivia-docs/backend/internal/infrastructure/progress"
	"github.com/olivia-docs/backend/internal/interfaces/http/response"
)

// ProgressHandler 摄取进度处理器
// 提供 WebSocket 推送与轮询两种获取方式
type ProgressHandler struct {
	hub      *progress.Hub
	service  *progress.Service
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewProgressHandler 创建摄取进度处理器
func NewProgressHandler(hub *progress.Hub, service *progress.Service, wsCfg *config.WebSocketConfig) *ProgressHandler {
	return &ProgressHandler{
		hub:     hub,
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsCfg.ReadBufferSize,
			WriteBufferSize: wsCfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // 本机服务，允许所有来源
			},
		},
		logger: log.NewModuleLogger("http", "progress_handler"),
	}
}

// Poll 轮询任务进度
// GET /api/v1/rag/progress/:task_id
func (h *ProgressHandler) Poll(c *gin.Context) {
	taskID := c.Param("task_id")
	p := h.service.GetProgress(taskID)
	if p == nil {
		response.Error(c, http.StatusNotFound, 404, "no progress for task")
		return
	}
	response.Success(c, p)
}

// Subscribe 订阅用户的进度推送
// GET /ws/progress/:user_id
func (h *ProgressHandler) Subscribe(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid user_id")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket connection", "error", err)
		return
	}

	sub := &progress.Connection{UserID: userID, Send: make(chan []byte, 64)}
	h.hub.Register(sub)

	// 写泵：Hub 投递的进度帧写给客户端
	go func() {
		defer conn.Close()
		for data := range sub.Send {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.hub.Unregister(sub)
				return
			}
		}
	}()

	// 读泵：应答客户端心跳并感知断开
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				h.hub.Unregister(sub)
				return
			}
			if string(msg) == "ping" {
				select {
				case sub.Send <- []byte(`{"type":"pong"}`):
				default:
				}
			}
		}
	}()
}
