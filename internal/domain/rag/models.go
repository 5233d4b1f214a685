package rag

import "strings"

// RetrievedDocument 向量检索命中的文档片段
// 仅在单次请求生命周期内存在，除缓存条目外不得跨请求持有
type RetrievedDocument struct {
	Content      string  `json:"content"`
	Source       string  `json:"source"`
	Score        float32 `json:"score"` // 统一为"越高越相关"
	UserID       int64   `json:"user_id"`
	CollectionID int64   `json:"collection_id"`
	Page         int     `json:"page,omitempty"`
	StartIndex   int     `json:"start_index,omitempty"`
}

// SourceCitation 引用来源
// 按来源文件去重后的展示结构，content_preview 为截断预览
type SourceCitation struct {
	Source          string  `json:"source"`
	SimilarityScore float32 `json:"similarity_score"`
	ContentPreview  string  `json:"content"`
}

// ChunkMetadata 文档分块元数据
// 删除按来源（deletion-by-source）和可视化功能依赖这些字段
type ChunkMetadata struct {
	UserID       int64  `json:"user_id"`
	CollectionID int64  `json:"collection_id"`
	Source       string `json:"source"`
	FileType     string `json:"file_type"`
	Page         int    `json:"page"`
	TotalPages   int    `json:"total_pages"`
	StartIndex   int    `json:"start_index"`
	TokenCount   int    `json:"token_count,omitempty"`
}

// DocumentChunk 文档分块
// 由摄取流水线创建，批量写入向量索引后不再修改（删除即替换）
type DocumentChunk struct {
	Text     string
	Metadata ChunkMetadata
}

// ContentPreview 获取分块内容预览（前 500 字符）
func (d *RetrievedDocument) ContentPreview() string {
	const maxPreview = 500
	if len(d.Content) <= maxPreview {
		return d.Content
	}
	return d.Content[:maxPreview]
}

// DedupKey 内容去重键：去除首尾空白后的前 100 字符
// 近似的内容同一性判断，开头相同尾部不同的两个分块会折叠为一个
func (d *RetrievedDocument) DedupKey() string {
	const dedupPrefixLen = 100
	trimmed := strings.TrimSpace(d.Content)
	if len(trimmed) <= dedupPrefixLen {
		return trimmed
	}
	return trimmed[:dedupPrefixLen]
}

// StreamEvent 流式回答事件
// sources 帧（如请求了引用）先于 chunk 帧；error 帧表示异常终止
type StreamEvent struct {
	Type    string           `json:"type"` // sources / chunk / error
	Content string           `json:"content,omitempty"`
	Sources []SourceCitation `json:"sources,omitempty"`
	Message string           `json:"message,omitempty"`
}

// 流事件类型常量
const (
	StreamEventSources = "sources"
	StreamEventChunk   = "chunk"
	StreamEventError   = "error"
)
