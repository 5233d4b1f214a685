package rag

import (
	"regexp"
	"strings"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
)

// QueryAnalyzer 查询复杂度分析器
// 按词数与句式模式把查询分为 simple / moderate / complex 三档，
// 并据此派生检索参数。无状态，可并发使用。
type QueryAnalyzer struct {
	complexPatterns []*regexp.Regexp
}

// 复杂查询句式：解释类问句、多部分问句、枚举类请求、过程类请求
var complexPatternSources = []string{
	`\b(how|why|explain|compare|analyze|describe)\b.*\?`,
	`\b(what|which|when|where)\b.*\b(and|or|versus|vs|but)\b`,
	`\b(multiple|several|different|various)\b`,
	`\b(steps|process|procedure|method)\b`,
	`[0-9]+\s+(ways|types|examples|steps)`,
}

// NewQueryAnalyzer 创建查询复杂度分析器
func NewQueryAnalyzer() *QueryAnalyzer {
	patterns := make([]*regexp.Regexp, 0, len(complexPatternSources))
	for _, src := range complexPatternSources {
		patterns = append(patterns, regexp.MustCompile(src))
	}
	return &QueryAnalyzer{complexPatterns: patterns}
}

// AnalyzeComplexity 分析查询复杂度
// 词数阈值：<=3 为 simple，<=9 为 moderate，其余为 complex；
// 命中任一复杂句式则直接判为 complex。
func (a *QueryAnalyzer) AnalyzeComplexity(query string) domainRAG.QueryComplexity {
	lower := strings.ToLower(strings.TrimSpace(query))
	wordCount := len(strings.Fields(lower))

	for _, p := range a.complexPatterns {
		if p.MatchString(lower) {
			return domainRAG.ComplexityComplex
		}
	}

	switch {
	case wordCount <= 3:
		return domainRAG.ComplexitySimple
	case wordCount <= 9:
		return domainRAG.ComplexityModerate
	default:
		return domainRAG.ComplexityComplex
	}
}

// GetRetrievalParams 按复杂度派生检索参数
// simple 收紧（少取、高阈值），complex 放宽并开启查询扩展，
// moderate 原样透传基准值。返回值为建议值，调用方仍需按系统上限收口。
func (a *QueryAnalyzer) GetRetrievalParams(query string, baseTopK int, baseMinScore float32) domainRAG.RetrievalParams {
	complexity := a.AnalyzeComplexity(query)

	switch complexity {
	case domainRAG.ComplexitySimple:
		return domainRAG.RetrievalParams{
			TopK:        minInt(baseTopK, 10),
			MinScore:    maxFloat32(baseMinScore, 0.25),
			ExpandQuery: false,
			Complexity:  complexity,
			Reasoning:   "Simple query: fewer, higher-quality results",
		}
	case domainRAG.ComplexityComplex:
		return domainRAG.RetrievalParams{
			TopK:        maxInt(baseTopK, 8),
			MinScore:    maxFloat32(baseMinScore, 0.1),
			ExpandQuery: true,
			Complexity:  complexity,
			Reasoning:   "Complex query: more results with query expansion",
		}
	default:
		return domainRAG.RetrievalParams{
			TopK:        baseTopK,
			MinScore:    baseMinScore,
			ExpandQuery: false,
			Complexity:  complexity,
			Reasoning:   "Moderate query: balanced retrieval",
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxFloat32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
