package rag

import "time"

// 文档状态
const (
	// DocumentStatusProcessing 摄取进行中
	DocumentStatusProcessing = "processing"
	// DocumentStatusReady 摄取完成，可检索
	DocumentStatusReady = "ready"
	// DocumentStatusFailed 摄取失败
	DocumentStatusFailed = "failed"
)

// Document 已上传文档的注册信息
type Document struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"user_id"`
	CollectionID int64     `json:"collection_id"`
	Filename     string    `json:"filename"`
	FileType     string    `json:"file_type"`
	SizeBytes    int64     `json:"size_bytes"`
	ChunkCount   int       `json:"chunk_count"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DocumentRepository 文档注册仓储
type DocumentRepository interface {
	// Save 保存或更新文档记录
	Save(doc *Document) error

	// FindByID 按 ID 查询文档
	FindByID(id string) (*Document, error)

	// ListByOwner 列出用户在某集合下的全部文档
	ListByOwner(userID, collectionID int64) ([]*Document, error)

	// DeleteByID 删除文档记录
	DeleteByID(id string) error

	// UpdateStatus 更新文档状态与块数
	UpdateStatus(id, status, errMsg string, chunkCount int) error
}
