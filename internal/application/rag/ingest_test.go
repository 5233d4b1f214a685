package rag

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
	"github.com/olivia-docs/backend/internal/infrastructure/cache"
	"github.com/olivia-docs/backend/internal/infrastructure/config"
	"github.com/olivia-docs/backend/internal/infrastructure/storage"
)

// fakeVectorIndex 记录写入分块的测试替身
type fakeVectorIndex struct {
	mu        sync.Mutex
	chunks    []domainRAG.DocumentChunk
	batches   int
	upsertErr error
	deleted   []domainRAG.OwnerFilter
	results   []domainRAG.RetrievedDocument
	searchErr error
	searches  []string
}

func (f *fakeVectorIndex) Search(_ context.Context, query string, _ int, _ domainRAG.OwnerFilter) ([]domainRAG.RetrievedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	return f.results, f.searchErr
}

func (f *fakeVectorIndex) UpsertChunks(_ context.Context, chunks []domainRAG.DocumentChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.chunks = append(f.chunks, chunks...)
	f.batches++
	return nil
}

func (f *fakeVectorIndex) DeleteByFilter(_ context.Context, filter domainRAG.OwnerFilter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, filter)
	return nil
}

// fakeProgressSink 记录进度事件的测试替身
type fakeProgressSink struct {
	mu     sync.Mutex
	events []domainRAG.IngestionProgress
}

func (f *fakeProgressSink) EmitProgress(userID int64, progress int, message, taskID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, domainRAG.IngestionProgress{
		Progress: progress, Message: message, TaskID: taskID,
	})
}

func (f *fakeProgressSink) progressValues() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	values := make([]int, 0, len(f.events))
	for _, e := range f.events {
		values = append(values, e.Progress)
	}
	return values
}

// fakeDocumentRepo 内存文档仓储
type fakeDocumentRepo struct {
	mu   sync.Mutex
	docs map[string]*domainRAG.Document
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: map[string]*domainRAG.Document{}}
}

func (f *fakeDocumentRepo) Save(doc *domainRAG.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *doc
	f.docs[doc.ID] = &copied
	return nil
}

func (f *fakeDocumentRepo) FindByID(id string) (*domainRAG.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[id], nil
}

func (f *fakeDocumentRepo) ListByOwner(userID, collectionID int64) ([]*domainRAG.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domainRAG.Document
	for _, d := range f.docs {
		if d.UserID == userID && d.CollectionID == collectionID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocumentRepo) DeleteByID(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeDocumentRepo) UpdateStatus(id, status, errMsg string, chunkCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.docs[id]; ok {
		d.Status = status
		d.Error = errMsg
		d.ChunkCount = chunkCount
	}
	return nil
}

func setupTestTiered(t *testing.T) *cache.TieredCache {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return cache.NewTieredCache(&config.CacheConfig{MaxSize: 100, DefaultTTL: 3600}, storage.NewCacheStore(db))
}

func setupIngestion(t *testing.T) (*IngestionService, *fakeVectorIndex, *fakeProgressSink, *fakeDocumentRepo) {
	t.Helper()

	index := &fakeVectorIndex{}
	sink := &fakeProgressSink{}
	repo := newFakeDocumentRepo()
	svc := NewIngestionService(
		NewDocumentLoader(),
		NewChunkSplitter(),
		index,
		repo,
		setupTestTiered(t),
		sink,
		&config.IngestionConfig{ChunkSize: 200, ChunkOverlap: 40, BatchSize: 100},
	)
	return svc, index, sink, repo
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestDocument_TextFile(t *testing.T) {
	svc, index, sink, repo := setupIngestion(t)

	var sb strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "Paragraph %d with enough words to form a meaningful chunk of text.\n\n", i)
	}
	path := writeTempFile(t, "notes.txt", sb.String())

	require.NoError(t, repo.Save(&domainRAG.Document{ID: "doc-1", UserID: 7, CollectionID: 3, Status: domainRAG.DocumentStatusProcessing}))

	count, err := svc.IngestDocument(context.Background(), path, 7, 3, "doc-1", "task-1")

	require.NoError(t, err)
	assert.Greater(t, count, 0)
	assert.Len(t, index.chunks, count)

	for _, c := range index.chunks {
		assert.Equal(t, int64(7), c.Metadata.UserID)
		assert.Equal(t, int64(3), c.Metadata.CollectionID)
		assert.Equal(t, "notes.txt", c.Metadata.Source)
		assert.Equal(t, ".txt", c.Metadata.FileType)
		assert.Equal(t, 1, c.Metadata.Page)
		assert.NotEmpty(t, c.Text)
	}

	doc, err := repo.FindByID("doc-1")
	require.NoError(t, err)
	assert.Equal(t, domainRAG.DocumentStatusReady, doc.Status)
	assert.Equal(t, count, doc.ChunkCount)

	// 进度事件按阶段顺序发布，以 100 收尾
	values := sink.progressValues()
	require.NotEmpty(t, values)
	assert.Equal(t, []int{20, 40, 50, 60}, values[:4])
	assert.Equal(t, 100, values[len(values)-1])
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1])
	}
}

func TestIngestDocument_EmptyFileFails(t *testing.T) {
	svc, index, sink, repo := setupIngestion(t)
	path := writeTempFile(t, "empty.txt", "   ")

	require.NoError(t, repo.Save(&domainRAG.Document{ID: "doc-2", UserID: 1, CollectionID: 1, Status: domainRAG.DocumentStatusProcessing}))

	_, err := svc.IngestDocument(context.Background(), path, 1, 1, "doc-2", "task-2")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no content extracted")
	assert.Empty(t, index.chunks)

	doc, findErr := repo.FindByID("doc-2")
	require.NoError(t, findErr)
	assert.Equal(t, domainRAG.DocumentStatusFailed, doc.Status)
	assert.NotEmpty(t, doc.Error)

	values := sink.progressValues()
	assert.Equal(t, domainRAG.ProgressFailed, values[len(values)-1])
}

func TestIngestDocument_MissingFile(t *testing.T) {
	svc, _, sink, _ := setupIngestion(t)

	_, err := svc.IngestDocument(context.Background(), "/nonexistent/file.txt", 1, 1, "", "task-3")

	require.Error(t, err)
	values := sink.progressValues()
	require.NotEmpty(t, values)
	assert.Equal(t, domainRAG.ProgressFailed, values[len(values)-1])
}

func TestIngestDocument_MarkupFile(t *testing.T) {
	svc, index, _, _ := setupIngestion(t)

	html := `<html><head><title>T</title><style>p{color:red}</style></head>
<body><p>Visible paragraph one.</p><p>Visible paragraph two.</p><script>alert(1)</script></body></html>`
	path := writeTempFile(t, "page.html", html)

	count, err := svc.IngestDocument(context.Background(), path, 1, 1, "", "task-4")

	require.NoError(t, err)
	require.Greater(t, count, 0)
	all := ""
	for _, c := range index.chunks {
		all += c.Text
	}
	assert.Contains(t, all, "Visible paragraph one.")
	assert.NotContains(t, all, "alert(1)")
	assert.NotContains(t, all, "color:red")
}

func TestOptimalChunkSize(t *testing.T) {
	svc, _, _, _ := setupIngestion(t)

	assert.Equal(t, 200, svc.optimalChunkSize(1024))
	assert.Equal(t, 300, svc.optimalChunkSize(6*1024*1024))
	assert.Equal(t, 400, svc.optimalChunkSize(11*1024*1024))
}

func TestOptimalChunkSize_Capped(t *testing.T) {
	svc := NewIngestionService(NewDocumentLoader(), NewChunkSplitter(), &fakeVectorIndex{}, newFakeDocumentRepo(), setupTestTiered(t), &fakeProgressSink{},
		&config.IngestionConfig{ChunkSize: 1000, ChunkOverlap: 100, BatchSize: 100})

	assert.Equal(t, 1536, svc.optimalChunkSize(11*1024*1024))
	assert.Equal(t, 1152, svc.optimalChunkSize(6*1024*1024))
}

func TestBatchSizeFor(t *testing.T) {
	svc, _, _, _ := setupIngestion(t)

	assert.Equal(t, 100, svc.batchSizeFor(1024))
	assert.Equal(t, 50, svc.batchSizeFor(11*1024*1024))
	assert.Equal(t, 25, svc.batchSizeFor(21*1024*1024))
}

func TestDeleteDocument(t *testing.T) {
	svc, index, _, repo := setupIngestion(t)
	require.NoError(t, repo.Save(&domainRAG.Document{ID: "doc-9", UserID: 5, CollectionID: 2, Filename: "old.pdf"}))

	err := svc.DeleteDocument(context.Background(), 5, 2, "doc-9", "old.pdf")

	require.NoError(t, err)
	require.Len(t, index.deleted, 1)
	assert.Equal(t, domainRAG.OwnerFilter{UserID: 5, CollectionID: 2, Source: "old.pdf"}, index.deleted[0])

	doc, findErr := repo.FindByID("doc-9")
	require.NoError(t, findErr)
	assert.Nil(t, doc)
}

func TestDeleteCollectionVectors(t *testing.T) {
	svc, index, _, repo := setupIngestion(t)
	require.NoError(t, repo.Save(&domainRAG.Document{ID: "d1", UserID: 5, CollectionID: 2}))
	require.NoError(t, repo.Save(&domainRAG.Document{ID: "d2", UserID: 5, CollectionID: 2}))
	require.NoError(t, repo.Save(&domainRAG.Document{ID: "d3", UserID: 5, CollectionID: 9}))

	err := svc.DeleteCollectionVectors(context.Background(), 5, 2)

	require.NoError(t, err)
	require.Len(t, index.deleted, 1)
	assert.Equal(t, domainRAG.OwnerFilter{UserID: 5, CollectionID: 2}, index.deleted[0])

	remaining, listErr := repo.ListByOwner(5, 2)
	require.NoError(t, listErr)
	assert.Empty(t, remaining)
	other, _ := repo.ListByOwner(5, 9)
	assert.Len(t, other, 1)
}
