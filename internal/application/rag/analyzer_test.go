package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
)

func TestAnalyzeComplexity_WordCount(t *testing.T) {
	analyzer := NewQueryAnalyzer()

	tests := []struct {
		name  string
		query string
		want  domainRAG.QueryComplexity
	}{
		{"单词查询", "golang", domainRAG.ComplexitySimple},
		{"三词查询", "golang context usage", domainRAG.ComplexitySimple},
		{"四词查询", "golang context usage patterns", domainRAG.ComplexityModerate},
		{"九词查询", "a b c d e f g h i", domainRAG.ComplexityModerate},
		{"十词查询", "a b c d e f g h i j", domainRAG.ComplexityComplex},
		{"首尾空白不影响词数", "  golang context  ", domainRAG.ComplexitySimple},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, analyzer.AnalyzeComplexity(tt.query))
		})
	}
}

func TestAnalyzeComplexity_Patterns(t *testing.T) {
	analyzer := NewQueryAnalyzer()

	// 命中复杂句式的短查询也判为 complex
	tests := []string{
		"how does it work?",
		"why is this failing?",
		"what is A and B?",
		"what is sqlite versus postgres",
		"which one but faster",
		"several approaches",
		"deployment steps",
		"3 ways to cache",
		"5 examples of recursion",
	}

	for _, query := range tests {
		assert.Equal(t, domainRAG.ComplexityComplex, analyzer.AnalyzeComplexity(query), query)
	}
}

func TestGetRetrievalParams_Simple(t *testing.T) {
	analyzer := NewQueryAnalyzer()

	params := analyzer.GetRetrievalParams("golang", 20, 0.0)

	assert.Equal(t, domainRAG.ComplexitySimple, params.Complexity)
	assert.Equal(t, 10, params.TopK, "simple 查询收紧到 10")
	assert.InDelta(t, 0.25, params.MinScore, 1e-6, "simple 查询抬高过滤下限")
	assert.False(t, params.ExpandQuery)
}

func TestGetRetrievalParams_SimpleKeepsSmallerBase(t *testing.T) {
	analyzer := NewQueryAnalyzer()

	params := analyzer.GetRetrievalParams("golang", 5, 0.5)

	assert.Equal(t, 5, params.TopK, "基准值更小时不放大")
	assert.InDelta(t, 0.5, params.MinScore, 1e-6, "基准下限更高时不降低")
}

func TestGetRetrievalParams_Moderate(t *testing.T) {
	analyzer := NewQueryAnalyzer()

	params := analyzer.GetRetrievalParams("golang context usage patterns", 20, 0.1)

	assert.Equal(t, domainRAG.ComplexityModerate, params.Complexity)
	assert.Equal(t, 20, params.TopK, "moderate 原样透传")
	assert.InDelta(t, 0.1, params.MinScore, 1e-6)
	assert.False(t, params.ExpandQuery)
}

func TestGetRetrievalParams_Complex(t *testing.T) {
	analyzer := NewQueryAnalyzer()

	params := analyzer.GetRetrievalParams("how does the garbage collector work?", 20, 0.0)

	assert.Equal(t, domainRAG.ComplexityComplex, params.Complexity)
	assert.Equal(t, 20, params.TopK, "基准值已超过下限时保持不变")
	assert.InDelta(t, 0.1, params.MinScore, 1e-6)
	assert.True(t, params.ExpandQuery, "complex 查询开启扩展")
}

func TestGetRetrievalParams_ComplexRaisesSmallBase(t *testing.T) {
	analyzer := NewQueryAnalyzer()

	params := analyzer.GetRetrievalParams("how does the garbage collector work?", 3, 0.0)

	assert.Equal(t, 8, params.TopK, "complex 查询至少取 8 条")
}
