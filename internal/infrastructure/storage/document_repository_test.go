package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
)

func newTestDocument(id string, userID, collectionID int64) *domainRAG.Document {
	now := time.Now().Truncate(time.Second)
	return &domainRAG.Document{
		ID:           id,
		UserID:       userID,
		CollectionID: collectionID,
		Filename:     "manual.pdf",
		FileType:     ".pdf",
		SizeBytes:    2048,
		Status:       domainRAG.DocumentStatusProcessing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestDocumentRepository_SaveAndFind(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	require.NoError(t, InitSchema(db))

	repo := NewDocumentRepository(db)

	doc := newTestDocument("doc-1", 1, 2)
	require.NoError(t, repo.Save(doc))

	found, err := repo.FindByID("doc-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "manual.pdf", found.Filename)
	assert.Equal(t, int64(1), found.UserID)
	assert.Equal(t, domainRAG.DocumentStatusProcessing, found.Status)

	// 未找到返回 nil
	missing, err := repo.FindByID("doc-missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDocumentRepository_ListByOwner(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	require.NoError(t, InitSchema(db))

	repo := NewDocumentRepository(db)

	require.NoError(t, repo.Save(newTestDocument("doc-1", 1, 2)))
	require.NoError(t, repo.Save(newTestDocument("doc-2", 1, 2)))
	require.NoError(t, repo.Save(newTestDocument("doc-3", 1, 9))) // 其它集合
	require.NoError(t, repo.Save(newTestDocument("doc-4", 7, 2))) // 其它用户

	docs, err := repo.ListByOwner(1, 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	for _, doc := range docs {
		assert.Equal(t, int64(1), doc.UserID)
		assert.Equal(t, int64(2), doc.CollectionID)
	}
}

func TestDocumentRepository_UpdateStatus(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	require.NoError(t, InitSchema(db))

	repo := NewDocumentRepository(db)
	require.NoError(t, repo.Save(newTestDocument("doc-1", 1, 2)))

	require.NoError(t, repo.UpdateStatus("doc-1", domainRAG.DocumentStatusReady, "", 42))

	found, err := repo.FindByID("doc-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, domainRAG.DocumentStatusReady, found.Status)
	assert.Equal(t, 42, found.ChunkCount)
	assert.Empty(t, found.Error)
}

func TestDocumentRepository_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	require.NoError(t, InitSchema(db))

	repo := NewDocumentRepository(db)
	require.NoError(t, repo.Save(newTestDocument("doc-1", 1, 2)))

	require.NoError(t, repo.DeleteByID("doc-1"))

	found, err := repo.FindByID("doc-1")
	require.NoError(t, err)
	assert.Nil(t, found)
}
