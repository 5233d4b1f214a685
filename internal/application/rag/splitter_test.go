package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyText(t *testing.T) {
	splitter := NewChunkSplitter()

	chunks, err := splitter.Split("   \n  ", 100, 20)

	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	splitter := NewChunkSplitter()

	chunks, err := splitter.Split("a short paragraph", 100, 20)

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartIndex)
}

func TestSplit_LongTextProducesMultipleChunks(t *testing.T) {
	splitter := NewChunkSplitter()

	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("paragraph number with some filler words to take up space.\n\n")
	}
	text := sb.String()

	chunks, err := splitter.Split(text, 200, 40)

	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.NotEmpty(t, c.Text)
	}
}

func TestSplit_StartIndexesMonotonic(t *testing.T) {
	splitter := NewChunkSplitter()

	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("unique segment ")
		sb.WriteString(strings.Repeat("word ", 10))
		sb.WriteString("\n\n")
	}
	text := sb.String()

	chunks, err := splitter.Split(text, 150, 30)

	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	prev := -1
	for _, c := range chunks {
		assert.Greater(t, c.StartIndex, prev, "起始偏移必须单调递增")
		prev = c.StartIndex
	}
}

func TestSplit_StartIndexLocatesChunk(t *testing.T) {
	splitter := NewChunkSplitter()

	text := "alpha block content\n\nbeta block content\n\ngamma block content"
	chunks, err := splitter.Split(text, 25, 0)

	require.NoError(t, err)
	for _, c := range chunks {
		require.LessOrEqual(t, c.StartIndex+len(c.Text), len(text))
		assert.Equal(t, c.Text, text[c.StartIndex:c.StartIndex+len(c.Text)])
	}
}

func TestSplitterFor_ReusesInstances(t *testing.T) {
	splitter := NewChunkSplitter()

	splitter.splitterFor(100, 20)
	splitter.splitterFor(100, 20)
	splitter.splitterFor(200, 20)

	assert.Len(t, splitter.cache, 2)
}
