package rag

import "context"

// OwnerFilter 所有者过滤条件
// Source 非空时额外按来源文件过滤（用于按文档删除）
type OwnerFilter struct {
	UserID       int64
	CollectionID int64
	Source       string
}

// VectorIndex 向量索引契约
// 实现方负责把分数统一为"越高越相关"（余弦相似度天然满足；
// 距离型指标需在边界处换算），上层过滤与排序均基于该约定
type VectorIndex interface {
	// Search 按所有者过滤的相似度检索
	Search(ctx context.Context, query string, topK int, filter OwnerFilter) ([]RetrievedDocument, error)
	// UpsertChunks 批量写入分块
	UpsertChunks(ctx context.Context, chunks []DocumentChunk) error
	// DeleteByFilter 按过滤条件删除向量
	DeleteByFilter(ctx context.Context, filter OwnerFilter) error
}

// Embedder 向量化契约
// 仅暴露实际用到的方法，不做开放式转发
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// GenerateRequest 生成请求
type GenerateRequest struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// StreamChunk 流式生成的增量片段
// Err 非空表示序列异常终止；序列有限且不可重放
type StreamChunk struct {
	Content string
	Err     error
}

// Generator 生成模型契约
type Generator interface {
	// Generate 单次生成完整回答
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	// GenerateStream 增量流式生成，通道在序列结束或出错后关闭
	GenerateStream(ctx context.Context, req GenerateRequest) (<-chan StreamChunk, error)
}

// ProgressSink 摄取进度接收方
type ProgressSink interface {
	EmitProgress(userID int64, progress int, message, taskID string)
}
