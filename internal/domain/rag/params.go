package rag

// QueryComplexity 查询复杂度等级
type QueryComplexity string

const (
	ComplexitySimple   QueryComplexity = "simple"   // 简单问题，1-3 词
	ComplexityModerate QueryComplexity = "moderate" // 标准查询，4-9 词
	ComplexityComplex  QueryComplexity = "complex"  // 长查询或多部分问题
)

// RetrievalParams 检索参数
// 由分析器按查询文本派生，创建后不可变，仅供本次请求使用
// 分析器输出为建议值，调用方需再按系统上限（max top_k / min score）收口
type RetrievalParams struct {
	TopK        int             `json:"top_k"`
	MinScore    float32         `json:"min_score"`
	ExpandQuery bool            `json:"expand_query"`
	Complexity  QueryComplexity `json:"complexity"`
	Reasoning   string          `json:"reasoning"` // 仅用于诊断日志
}

// RetrievalInfo 返回给调用方的检索诊断信息
type RetrievalInfo struct {
	Complexity    QueryComplexity `json:"complexity"`
	TopKUsed      int             `json:"top_k_used"`
	MinScoreUsed  float32         `json:"min_score_used"`
	QueryExpanded bool            `json:"query_expanded"`
	DocsRetrieved int             `json:"docs_retrieved"`
}
