package rag

import "strings"

// QueryExpander 查询扩展器
// 用同义词表生成查询变体以提升召回。仅对短查询做笛卡尔组合，
// 结果总数封顶，避免组合爆炸。无状态，可并发使用。
type QueryExpander struct {
	synonyms map[string][]string
}

// NewQueryExpander 创建查询扩展器
func NewQueryExpander() *QueryExpander {
	return &QueryExpander{
		synonyms: map[string][]string{
			"show":     {"display", "present", "illustrate"},
			"create":   {"build", "develop", "make", "generate"},
			"explain":  {"describe", "clarify", "elaborate"},
			"find":     {"locate", "search", "discover"},
			"help":     {"assist", "support", "aid"},
			"use":      {"utilize", "apply", "employ"},
			"work":     {"function", "operate", "perform"},
			"problem":  {"issue", "difficulty", "challenge"},
			"solution": {"answer", "fix", "resolution"},
			"example":  {"instance", "sample", "case"},
		},
	}
}

// maxExpandedQueries 扩展结果总数上限（含原查询）
const maxExpandedQueries = 4

// Expand 生成扩展查询列表，原查询始终排在首位
// 单词查询与空查询不扩展；每词最多取 2 个同义词；
// 超过 4 个词的查询不做组合。
func (e *QueryExpander) Expand(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	if query == "" || len(words) < 2 {
		return []string{query}
	}

	expanded := []string{query}

	candidates := make([][]string, 0, len(words))
	for _, word := range words {
		if syns, ok := e.synonyms[word]; ok {
			limit := minInt(len(syns), 2)
			candidates = append(candidates, syns[:limit])
		} else {
			candidates = append(candidates, []string{word})
		}
	}

	if len(candidates) > maxExpandedQueries {
		return expanded
	}

	lowerQuery := strings.ToLower(query)
	seen := map[string]bool{lowerQuery: true}
	for _, combo := range cartesianProduct(candidates) {
		variant := strings.Join(combo, " ")
		if seen[variant] {
			continue
		}
		seen[variant] = true
		expanded = append(expanded, variant)
		if len(expanded) >= maxExpandedQueries {
			break
		}
	}

	return expanded
}

// cartesianProduct 逐位展开词槽的所有组合，保持槽内顺序
func cartesianProduct(slots [][]string) [][]string {
	result := [][]string{{}}
	for _, slot := range slots {
		next := make([][]string, 0, len(result)*len(slot))
		for _, prefix := range result {
			for _, word := range slot {
				combo := make([]string, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, word))
			}
		}
		result = next
	}
	return result
}
