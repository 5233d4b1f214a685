package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectPromptType(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		contextLength int
		want          PromptType
	}{
		{"比较类", "compare the two approaches", 1000, PromptAnalytical},
		{"原因类", "why does this happen", 1000, PromptAnalytical},
		{"解释类", "explain the architecture", 1000, PromptDetailed},
		{"机制类", "how does caching work here", 1000, PromptDetailed},
		{"短查询长上下文", "list the steps", 6000, PromptConcise},
		{"短查询短上下文", "list the steps", 1000, PromptDefault},
		{"默认", "tell me about the project goals and scope", 1000, PromptDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectPromptType(tt.query, tt.contextLength))
		})
	}
}

func TestBuildPrompt_FillsPlaceholders(t *testing.T) {
	prompt := BuildPrompt("what is X", "[Source: a.txt]\ncontent", "")

	assert.Contains(t, prompt, "what is X")
	assert.Contains(t, prompt, "[Source: a.txt]\ncontent")
	assert.NotContains(t, prompt, "{context}")
	assert.NotContains(t, prompt, "{question}")
}

func TestBuildPrompt_EmptyContextUsesRefusalTemplate(t *testing.T) {
	prompt := BuildPrompt("what is X", "", "")

	assert.Contains(t, prompt, "no relevant information was found")
}

func TestBuildPrompt_CustomTemplateWins(t *testing.T) {
	custom := "CTX: {context} Q: {question}"

	prompt := BuildPrompt("my question", "my context", custom)

	assert.Equal(t, "CTX: my context Q: my question", prompt)
}

func TestBuildPrompt_InvalidCustomFallsBack(t *testing.T) {
	// 缺少占位符的自定义模板回退到兜底模板
	prompt := BuildPrompt("my question", "my context", "no placeholders here")

	assert.Contains(t, prompt, "Context:\nmy context")
	assert.Contains(t, prompt, "Question: my question")
}

func TestBuildLightweightPrompt(t *testing.T) {
	prompt := BuildLightweightPrompt("hello", "")

	assert.Contains(t, prompt, "Question: hello")
	assert.False(t, strings.Contains(prompt, "{question}"))
}

func TestBuildLightweightPrompt_Custom(t *testing.T) {
	prompt := BuildLightweightPrompt("hello", "Q={question}")

	assert.Equal(t, "Q=hello", prompt)
}

func TestPromptTemplates_HavePlaceholders(t *testing.T) {
	for name, tmpl := range promptTemplates {
		assert.Contains(t, tmpl, "{context}", string(name))
		assert.Contains(t, tmpl, "{question}", string(name))
	}
}
