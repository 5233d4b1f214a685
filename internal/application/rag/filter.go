package rag

import (
	"fmt"
	"sort"
	"strings"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
)

// RetrievalFilter 检索结果过滤器
// 对多路检索的合并结果做去重、分数过滤与排序，并生成
// 引用列表和送入提示词的上下文字符串。无状态，可并发使用。
type RetrievalFilter struct{}

// NewRetrievalFilter 创建检索结果过滤器
func NewRetrievalFilter() *RetrievalFilter {
	return &RetrievalFilter{}
}

// DedupAndFilter 去重并按最低分过滤，返回按分数降序的结果
// 内容去重以去除首尾空白后的前 100 字符为键，先出现者胜出；
// 排序为稳定排序，同分保持输入相对顺序。
func (f *RetrievalFilter) DedupAndFilter(docs []domainRAG.RetrievedDocument, minScore float32) []domainRAG.RetrievedDocument {
	seen := make(map[string]bool, len(docs))
	filtered := make([]domainRAG.RetrievedDocument, 0, len(docs))

	for _, doc := range docs {
		if doc.Score < minScore {
			continue
		}
		key := doc.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		filtered = append(filtered, doc)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	return filtered
}

// ToCitations 按来源文件折叠为引用列表
// 同一来源只保留最高分的一条，结果按分数降序并截断到 topK。
func (f *RetrievalFilter) ToCitations(docs []domainRAG.RetrievedDocument, minScore float32, topK int) []domainRAG.SourceCitation {
	bySource := make(map[string]domainRAG.SourceCitation, len(docs))
	order := make([]string, 0, len(docs))

	for _, doc := range docs {
		if doc.Score < minScore {
			continue
		}
		source := doc.Source
		if source == "" {
			source = "Unknown"
		}
		existing, ok := bySource[source]
		if !ok {
			order = append(order, source)
		}
		if !ok || doc.Score > existing.SimilarityScore {
			bySource[source] = domainRAG.SourceCitation{
				Source:          source,
				SimilarityScore: doc.Score,
				ContentPreview:  doc.ContentPreview(),
			}
		}
	}

	citations := make([]domainRAG.SourceCitation, 0, len(order))
	for _, source := range order {
		citations = append(citations, bySource[source])
	}
	sort.SliceStable(citations, func(i, j int) bool {
		return citations[i].SimilarityScore > citations[j].SimilarityScore
	})
	if topK > 0 && len(citations) > topK {
		citations = citations[:topK]
	}
	return citations
}

// ToContext 拼装送入提示词的上下文
// 每段格式为 "[Source: 文件名]\n内容"，段间以空行分隔；
// 无文档时返回空串，由提示词层切换到无上下文模板。
func (f *RetrievalFilter) ToContext(docs []domainRAG.RetrievedDocument) string {
	if len(docs) == 0 {
		return ""
	}

	formatted := make([]string, 0, len(docs))
	for _, doc := range docs {
		source := doc.Source
		if source == "" {
			source = "Unknown"
		}
		formatted = append(formatted, fmt.Sprintf("[Source: %s]\n%s", source, doc.Content))
	}
	return strings.Join(formatted, "\n\n")
}
