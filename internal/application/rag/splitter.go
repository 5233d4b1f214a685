package rag

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/textsplitter"
)

// chunkSeparators 递归分块的分隔符优先级：段落、行、词、字符
var chunkSeparators = []string{"\n\n", "\n", " ", ""}

// splitterKey 分块器缓存键，按参数值区分
type splitterKey struct {
	chunkSize    int
	chunkOverlap int
}

// ChunkSplitter 文档分块器
// 包装递归字符分块并补充起始偏移；按 (size, overlap) 缓存底层
// 分块器实例，同参数复用。
type ChunkSplitter struct {
	mu    sync.Mutex
	cache map[splitterKey]textsplitter.RecursiveCharacter
}

// NewChunkSplitter 创建文档分块器
func NewChunkSplitter() *ChunkSplitter {
	return &ChunkSplitter{cache: make(map[splitterKey]textsplitter.RecursiveCharacter)}
}

// TextChunk 分块结果，StartIndex 为分块在原文中的起始字节偏移
type TextChunk struct {
	Text       string
	StartIndex int
}

// maxCachedSplitters 分块器缓存上限
// 实际参数组合只有基准值与两档放大值，超限直接清空重建
const maxCachedSplitters = 16

func (s *ChunkSplitter) splitterFor(chunkSize, chunkOverlap int) textsplitter.RecursiveCharacter {
	key := splitterKey{chunkSize: chunkSize, chunkOverlap: chunkOverlap}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sp, ok := s.cache[key]; ok {
		return sp
	}
	if len(s.cache) >= maxCachedSplitters {
		s.cache = make(map[splitterKey]textsplitter.RecursiveCharacter)
	}
	sp := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(chunkSeparators),
	)
	s.cache[key] = sp
	return sp
}

// Split 把文本切成带起始偏移的分块
// 起始偏移按分块内容在原文中自前一分块起点之后的首次出现计算，
// 重叠分块因此得到单调递增的偏移。
func (s *ChunkSplitter) Split(text string, chunkSize, chunkOverlap int) ([]TextChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	sp := s.splitterFor(chunkSize, chunkOverlap)
	pieces, err := sp.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}

	chunks := make([]TextChunk, 0, len(pieces))
	searchFrom := 0
	for _, piece := range pieces {
		idx := strings.Index(text[searchFrom:], piece)
		start := searchFrom
		if idx >= 0 {
			start = searchFrom + idx
			// 下一分块可能与本分块重叠，从本分块起点之后继续找
			searchFrom = start + 1
		}
		chunks = append(chunks, TextChunk{Text: piece, StartIndex: start})
	}
	return chunks, nil
}
