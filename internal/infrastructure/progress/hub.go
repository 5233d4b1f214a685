package progress

import (
	"encoding/json"
	"sync"
)

// Hub 进度 WebSocket 连接管理中心，按用户分组
type Hub struct {
	// 按用户分组的连接
	users map[int64]map[*Connection]bool
	// 注册连接
	register chan *Connection
	// 注销连接
	unregister chan *Connection
	// 广播消息
	broadcast chan *Message
	mu        sync.RWMutex
}

// Connection 单个订阅连接
type Connection struct {
	UserID int64
	Send   chan []byte
}

// Message 待广播消息
type Message struct {
	UserID int64
	Data   []byte
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		users:      make(map[int64]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *Message),
	}
}

// Run 运行 Hub（需要在 goroutine 中运行）
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.users[conn.UserID] == nil {
				h.users[conn.UserID] = make(map[*Connection]bool)
			}
			h.users[conn.UserID][conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.users[conn.UserID]; ok {
				if _, ok := conns[conn]; ok {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.users, conn.UserID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			if conns, ok := h.users[msg.UserID]; ok {
				for conn := range conns {
					select {
					case conn.Send <- msg.Data:
					default:
						// 发送失败只移除该订阅者，不影响其余连接
						close(conn.Send)
						delete(conns, conn)
					}
				}
				if len(conns) == 0 {
					delete(h.users, msg.UserID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Start 启动 Hub（启动后台 goroutine）
func (h *Hub) Start() {
	go h.Run()
}

// Register 注册连接
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister 注销连接
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToUser 向某用户的全部订阅连接广播消息
func (h *Hub) BroadcastToUser(userID int64, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	h.broadcast <- &Message{
		UserID: userID,
		Data:   jsonData,
	}
	return nil
}

// SubscriberCount 某用户当前的订阅连接数
func (h *Hub) SubscriberCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
