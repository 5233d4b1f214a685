package storage

import (
	"database/sql"
	"fmt"
	"time"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
)

// 确保 DocumentRepositoryImpl 实现了 domainRAG.DocumentRepository 接口
var _ domainRAG.DocumentRepository = (*DocumentRepositoryImpl)(nil)

// DocumentRepositoryImpl 文档注册仓储实现
type DocumentRepositoryImpl struct {
	db *sql.DB
}

// NewDocumentRepository 创建文档注册仓储实例
func NewDocumentRepository(db *sql.DB) domainRAG.DocumentRepository {
	return &DocumentRepositoryImpl{db: db}
}

// Save 保存或更新文档记录
func (r *DocumentRepositoryImpl) Save(doc *domainRAG.Document) error {
	query := `
		INSERT OR REPLACE INTO documents (
			id, user_id, collection_id, filename, file_type,
			size_bytes, chunk_count, status, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(
		query,
		doc.ID,
		doc.UserID,
		doc.CollectionID,
		doc.Filename,
		doc.FileType,
		doc.SizeBytes,
		doc.ChunkCount,
		doc.Status,
		doc.Error,
		doc.CreatedAt.Unix(),
		doc.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// FindByID 按 ID 查询文档，未找到返回 nil
func (r *DocumentRepositoryImpl) FindByID(id string) (*domainRAG.Document, error) {
	query := `
		SELECT id, user_id, collection_id, filename, file_type,
		       size_bytes, chunk_count, status, error, created_at, updated_at
		FROM documents WHERE id = ?`

	doc, err := scanDocument(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find document: %w", err)
	}
	return doc, nil
}

// ListByOwner 列出用户在某集合下的全部文档，按创建时间倒序
func (r *DocumentRepositoryImpl) ListByOwner(userID, collectionID int64) ([]*domainRAG.Document, error) {
	query := `
		SELECT id, user_id, collection_id, filename, file_type,
		       size_bytes, chunk_count, status, error, created_at, updated_at
		FROM documents
		WHERE user_id = ? AND collection_id = ?
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query, userID, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*domainRAG.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteByID 删除文档记录
func (r *DocumentRepositoryImpl) DeleteByID(id string) error {
	if _, err := r.db.Exec(`DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// UpdateStatus 更新文档状态与块数
func (r *DocumentRepositoryImpl) UpdateStatus(id, status, errMsg string, chunkCount int) error {
	query := `
		UPDATE documents
		SET status = ?, error = ?, chunk_count = ?, updated_at = ?
		WHERE id = ?`

	_, err := r.db.Exec(query, status, errMsg, chunkCount, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return nil
}

// rowScanner 兼容 *sql.Row 与 *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domainRAG.Document, error) {
	var doc domainRAG.Document
	var createdAt, updatedAt int64

	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.CollectionID,
		&doc.Filename,
		&doc.FileType,
		&doc.SizeBytes,
		&doc.ChunkCount,
		&doc.Status,
		&doc.Error,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.CreatedAt = time.Unix(createdAt, 0)
	doc.UpdatedAt = time.Unix(updatedAt, 0)
	return &doc, nil
}
