package vector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/olivia-docs/backend/internal/domain/rag"
	"github.com/olivia-docs/backend/internal/infrastructure/config"
	"github.com/olivia-docs/backend/internal/infrastructure/log"
)

// 确保 QdrantStore 实现了 rag.VectorIndex 接口
var _ rag.VectorIndex = (*QdrantStore)(nil)

// QdrantStore 基于 Qdrant 的向量索引
// 统一使用余弦相似度，分数天然满足"越高越相关"的约定
type QdrantStore struct {
	client             *qdrant.Client
	embedder           rag.Embedder
	documentsColl      string
	semanticCacheColl  string
	dimension          uint64
	logger             *slog.Logger
}

// NewQdrantStore 创建 Qdrant 向量索引
func NewQdrantStore(cfg *config.QdrantConfig, embedCfg *config.EmbeddingConfig, embedder rag.Embedder) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantStore{
		client:            client,
		embedder:          embedder,
		documentsColl:     cfg.DocumentsCollection,
		semanticCacheColl: cfg.SemanticCacheCollection,
		dimension:         uint64(embedCfg.Dimension),
		logger:            log.NewModuleLogger("vector", "qdrant"),
	}, nil
}

// Close 关闭连接
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// EnsureCollections 确保文档集合与语义缓存集合存在
func (s *QdrantStore) EnsureCollections(ctx context.Context) error {
	existing, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	collectionMap := make(map[string]bool)
	for _, name := range existing {
		collectionMap[name] = true
	}

	for _, collectionName := range []string{s.documentsColl, s.semanticCacheColl} {
		if collectionMap[collectionName] {
			continue
		}

		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.dimension,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", collectionName, err)
		}

		s.logger.Info("Created qdrant collection",
			"collection", collectionName,
			"dimension", s.dimension,
		)
	}

	return nil
}

// Search 按所有者过滤的相似度检索
func (s *QdrantStore) Search(ctx context.Context, query string, topK int, filter rag.OwnerFilter) ([]rag.RetrievedDocument, error) {
	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	limit := uint64(topK)
	searchResp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.documentsColl,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          &limit,
		Filter:         buildOwnerFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		s.logger.Error("Failed to query qdrant", "error", err)
		return nil, fmt.Errorf("failed to query qdrant: %w", err)
	}

	docs := make([]rag.RetrievedDocument, 0, len(searchResp))
	for _, hit := range searchResp {
		doc := hitToDocument(hit)
		if doc != nil {
			docs = append(docs, *doc)
		}
	}

	s.logger.Debug("Vector search completed",
		"query_len", len(query),
		"top_k", topK,
		"hits", len(docs),
	)
	return docs, nil
}

// UpsertChunks 批量写入分块，向量化与写入在同一批内完成
func (s *QdrantStore) UpsertChunks(ctx context.Context, chunks []rag.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(chunks))
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		vectorArgs := make([]float32, len(vectors[i]))
		copy(vectorArgs, vectors[i])

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.NewString()),
			Vectors: qdrant.NewVectors(vectorArgs...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"content":       chunk.Text,
				"user_id":       chunk.Metadata.UserID,
				"collection_id": chunk.Metadata.CollectionID,
				"source":        chunk.Metadata.Source,
				"file_type":     chunk.Metadata.FileType,
				"page":          int64(chunk.Metadata.Page),
				"total_pages":   int64(chunk.Metadata.TotalPages),
				"start_index":   int64(chunk.Metadata.StartIndex),
				"token_count":   int64(chunk.Metadata.TokenCount),
			}),
		}
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.documentsColl,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}

	return nil
}

// DeleteByFilter 按过滤条件删除向量
func (s *QdrantStore) DeleteByFilter(ctx context.Context, filter rag.OwnerFilter) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.documentsColl,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: buildOwnerFilter(filter),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}

	s.logger.Info("Deleted vectors by filter",
		"user_id", filter.UserID,
		"collection_id", filter.CollectionID,
		"source", filter.Source,
	)
	return nil
}

// SemanticHit 语义缓存命中结果
// SourcesJSON 为命中回答当时的引用列表（JSON 序列化）
type SemanticHit struct {
	Answer      string
	Query       string
	SourcesJSON string
	Score       float32
}

// SemanticSearch 在语义缓存集合中检索最相近的历史问题（k=1）
// 未命中返回 nil
func (s *QdrantStore) SemanticSearch(ctx context.Context, query string, userID, collectionID int64) (*SemanticHit, error) {
	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	limit := uint64(1)
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.semanticCacheColl,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          &limit,
		Filter:         buildOwnerFilter(rag.OwnerFilter{UserID: userID, CollectionID: collectionID}),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query semantic cache: %w", err)
	}

	if len(resp) == 0 {
		return nil, nil
	}

	hit := resp[0]
	payload := hit.GetPayload()
	if payload == nil {
		return nil, nil
	}

	result := &SemanticHit{Score: hit.GetScore()}
	if val, ok := payload["answer"]; ok {
		result.Answer = extractStringValue(val)
	}
	if val, ok := payload["query"]; ok {
		result.Query = extractStringValue(val)
	}
	if val, ok := payload["sources"]; ok {
		result.SourcesJSON = extractStringValue(val)
	}
	return result, nil
}

// StoreSemanticAnswer 将问答对写入语义缓存集合
func (s *QdrantStore) StoreSemanticAnswer(ctx context.Context, query, answer, sourcesJSON string, userID, collectionID int64) error {
	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(uuid.NewString()),
		Vectors: qdrant.NewVectors(queryVector...),
		Payload: qdrant.NewValueMap(map[string]interface{}{
			"query":         query,
			"answer":        answer,
			"sources":       sourcesJSON,
			"user_id":       userID,
			"collection_id": collectionID,
		}),
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.semanticCacheColl,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to store semantic answer: %w", err)
	}
	return nil
}

// buildOwnerFilter 构建所有者过滤条件
// user_id 与 collection_id 必须同时匹配，source 非空时额外匹配
func buildOwnerFilter(filter rag.OwnerFilter) *qdrant.Filter {
	conditions := []*qdrant.Condition{
		qdrant.NewMatchInt("user_id", filter.UserID),
		qdrant.NewMatchInt("collection_id", filter.CollectionID),
	}
	if filter.Source != "" {
		conditions = append(conditions, qdrant.NewMatch("source", filter.Source))
	}
	return &qdrant.Filter{Must: conditions}
}

// hitToDocument 将检索命中转换为文档片段
func hitToDocument(hit *qdrant.ScoredPoint) *rag.RetrievedDocument {
	payload := hit.GetPayload()
	if payload == nil {
		return nil
	}

	doc := &rag.RetrievedDocument{
		Score: hit.GetScore(),
	}

	if val, ok := payload["content"]; ok {
		doc.Content = extractStringValue(val)
	}
	if val, ok := payload["source"]; ok {
		doc.Source = extractStringValue(val)
	}
	if val, ok := payload["user_id"]; ok {
		doc.UserID = extractIntValue(val)
	}
	if val, ok := payload["collection_id"]; ok {
		doc.CollectionID = extractIntValue(val)
	}
	if val, ok := payload["page"]; ok {
		doc.Page = int(extractIntValue(val))
	}
	if val, ok := payload["start_index"]; ok {
		doc.StartIndex = int(extractIntValue(val))
	}

	return doc
}

// extractStringValue 从 qdrant.Value 提取字符串值
func extractStringValue(val *qdrant.Value) string {
	if val == nil {
		return ""
	}
	return val.GetStringValue()
}

// extractIntValue 从 qdrant.Value 提取整数值
func extractIntValue(val *qdrant.Value) int64 {
	if val == nil {
		return 0
	}
	if intVal := val.GetIntegerValue(); intVal != 0 {
		return intVal
	}
	if dblVal := val.GetDoubleValue(); dblVal != 0 {
		return int64(dblVal)
	}
	return 0
}
