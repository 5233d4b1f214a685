package vector

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olivia-docs/backend/internal/domain/rag"
)

func TestBuildOwnerFilter(t *testing.T) {
	filter := buildOwnerFilter(rag.OwnerFilter{UserID: 7, CollectionID: 42})

	require.Len(t, filter.Must, 2)
	assert.Empty(t, filter.Should)

	// source 非空时追加第三个条件
	filter = buildOwnerFilter(rag.OwnerFilter{UserID: 7, CollectionID: 42, Source: "manual.pdf"})
	require.Len(t, filter.Must, 3)
}

func TestHitToDocument(t *testing.T) {
	hit := &qdrant.ScoredPoint{
		Score: 0.87,
		Payload: qdrant.NewValueMap(map[string]interface{}{
			"content":       "chunk text",
			"source":        "manual.pdf",
			"user_id":       int64(7),
			"collection_id": int64(42),
			"page":          int64(3),
			"start_index":   int64(1536),
		}),
	}

	doc := hitToDocument(hit)
	require.NotNil(t, doc)
	assert.Equal(t, "chunk text", doc.Content)
	assert.Equal(t, "manual.pdf", doc.Source)
	assert.InDelta(t, 0.87, doc.Score, 1e-6)
	assert.Equal(t, int64(7), doc.UserID)
	assert.Equal(t, int64(42), doc.CollectionID)
	assert.Equal(t, 3, doc.Page)
	assert.Equal(t, 1536, doc.StartIndex)
}

func TestHitToDocument_NilPayload(t *testing.T) {
	hit := &qdrant.ScoredPoint{Score: 0.5}
	assert.Nil(t, hitToDocument(hit))
}

func TestExtractIntValue(t *testing.T) {
	assert.Equal(t, int64(0), extractIntValue(nil))
	assert.Equal(t, int64(5), extractIntValue(qdrant.NewValueInt(5)))
	assert.Equal(t, int64(3), extractIntValue(qdrant.NewValueDouble(3.7)))
}
