package rag

// IngestionProgress 摄取进度事件
// progress 为 -1 表示终止失败，100 表示终止成功
type IngestionProgress struct {
	Type         string `json:"type"` // 固定为 progress
	Progress     int    `json:"progress"`
	Message      string `json:"message"`
	TaskID       string `json:"task_id"`
	IsProcessing bool   `json:"isProcessing"`
	Timestamp    int64  `json:"timestamp"`
}

// 摄取状态机各阶段的进度值
// queued → analyzing(20) → chunking(40) → chunked(50) → embedding(60) → storing(80-100) → done(100)
const (
	ProgressFailed    = -1
	ProgressQueued    = 0
	ProgressAnalyzing = 20
	ProgressChunking  = 40
	ProgressChunked   = 50
	ProgressEmbedding = 60
	ProgressStoring   = 80
	ProgressDone      = 100
)
