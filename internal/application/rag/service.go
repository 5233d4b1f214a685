package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
	"github.com/olivia-docs/backend/internal/infrastructure/cache"
	"github.com/olivia-docs/backend/internal/infrastructure/config"
	"github.com/olivia-docs/backend/internal/infrastructure/log"
)

// ChatService 检索问答编排服务
// 串联语义缓存、复杂度分析、查询扩展、向量检索、结果过滤与
// 回答生成，并在各层之间落缓存。
type ChatService struct {
	analyzer     *QueryAnalyzer
	expander     *QueryExpander
	filter       *RetrievalFilter
	semCache     *SemanticCache
	vectorIndex  domainRAG.VectorIndex
	generator    domainRAG.Generator
	tiered       *cache.TieredCache
	retrievalCfg *config.RetrievalConfig
	llmCfg       *config.LLMConfig
	cacheCfg     *config.CacheConfig
	logger       *slog.Logger
}

// NewChatService 创建检索问答编排服务
func NewChatService(
	analyzer *QueryAnalyzer,
	expander *QueryExpander,
	filter *RetrievalFilter,
	semCache *SemanticCache,
	vectorIndex domainRAG.VectorIndex,
	generator domainRAG.Generator,
	tiered *cache.TieredCache,
	retrievalCfg *config.RetrievalConfig,
	llmCfg *config.LLMConfig,
	cacheCfg *config.CacheConfig,
) *ChatService {
	return &ChatService{
		analyzer:     analyzer,
		expander:     expander,
		filter:       filter,
		semCache:     semCache,
		vectorIndex:  vectorIndex,
		generator:    generator,
		tiered:       tiered,
		retrievalCfg: retrievalCfg,
		llmCfg:       llmCfg,
		cacheCfg:     cacheCfg,
		logger:       log.NewModuleLogger("rag", "chat"),
	}
}

// maxSearchVariants 多路检索的查询变体上限（含原查询）
const maxSearchVariants = 3

// ChatRequest 问答请求
// Temperature 与 TopK 为 nil 时使用配置默认值
type ChatRequest struct {
	Query        string
	UserID       int64
	CollectionID int64
	Temperature  *float32
	TopK         *int
	CustomPrompt string
	WithSources  bool
}

// ChatResult 问答结果
type ChatResult struct {
	Response      string                     `json:"response"`
	Sources       []domainRAG.SourceCitation `json:"sources"`
	RetrievalInfo *domainRAG.RetrievalInfo   `json:"retrieval_info,omitempty"`
	Cached        bool                       `json:"cached,omitempty"`
}

// Chat 同步完成一轮文档问答
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	temperature, baseTopK := s.effectiveParams(req)

	if cached := s.semCache.Lookup(ctx, req.Query, req.UserID, req.CollectionID); cached != nil {
		return &ChatResult{Response: cached.Response, Sources: cached.Sources, Cached: true}, nil
	}

	retrieval, err := s.retrieve(ctx, req, baseTopK)
	if err != nil {
		return nil, err
	}

	llmKey := cache.LLMKey(req.UserID, req.CollectionID, req.Query, retrieval.context, req.CustomPrompt, temperature)
	var response string
	if s.tiered.Get(llmKey, &response) {
		s.logger.Debug("llm cache hit", "query", truncateQuery(req.Query))
		return &ChatResult{
			Response:      response,
			Sources:       retrieval.citations,
			RetrievalInfo: retrieval.info,
			Cached:        true,
		}, nil
	}

	prompt := BuildPrompt(req.Query, retrieval.context, req.CustomPrompt)
	response, err = s.generator.Generate(ctx, domainRAG.GenerateRequest{
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   s.llmCfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	if err := s.tiered.Set(llmKey, response, time.Duration(s.cacheCfg.LLMTTL)*time.Second); err != nil {
		s.logger.Warn("failed to cache llm response", "error", err)
	}
	s.semCache.Save(ctx, req.Query, response, retrieval.citations, req.UserID, req.CollectionID)

	return &ChatResult{
		Response:      response,
		Sources:       retrieval.citations,
		RetrievalInfo: retrieval.info,
	}, nil
}

// Sources 只执行检索并返回引用列表，不触发生成
func (s *ChatService) Sources(ctx context.Context, req ChatRequest) ([]domainRAG.SourceCitation, *domainRAG.RetrievalInfo, error) {
	_, baseTopK := s.effectiveParams(req)
	retrieval, err := s.retrieve(ctx, req, baseTopK)
	if err != nil {
		return nil, nil, err
	}
	return retrieval.citations, retrieval.info, nil
}

// StreamChat 流式完成一轮问答，事件经由返回的通道交付
// sources 帧（如请求）先于所有 chunk 帧；出错时发出 error 帧后
// 关闭通道。WithSources 为 false 时不做检索，走轻量对话模板。
func (s *ChatService) StreamChat(ctx context.Context, req ChatRequest) <-chan domainRAG.StreamEvent {
	events := make(chan domainRAG.StreamEvent, 16)
	go func() {
		defer close(events)
		s.streamChat(ctx, req, events)
	}()
	return events
}

func (s *ChatService) streamChat(ctx context.Context, req ChatRequest, events chan<- domainRAG.StreamEvent) {
	temperature, baseTopK := s.effectiveParams(req)

	if cached := s.semCache.Lookup(ctx, req.Query, req.UserID, req.CollectionID); cached != nil {
		if req.WithSources && len(cached.Sources) > 0 {
			if !s.emit(ctx, events, domainRAG.StreamEvent{Type: domainRAG.StreamEventSources, Sources: cached.Sources}) {
				return
			}
		}
		s.emit(ctx, events, domainRAG.StreamEvent{Type: domainRAG.StreamEventChunk, Content: cached.Response})
		return
	}

	var prompt string
	var citations []domainRAG.SourceCitation
	if req.WithSources {
		retrieval, err := s.retrieve(ctx, req, baseTopK)
		if err != nil {
			s.emit(ctx, events, domainRAG.StreamEvent{Type: domainRAG.StreamEventError, Message: err.Error()})
			return
		}
		citations = retrieval.citations
		if len(citations) > 0 {
			if !s.emit(ctx, events, domainRAG.StreamEvent{Type: domainRAG.StreamEventSources, Sources: citations}) {
				return
			}
		}
		prompt = BuildPrompt(req.Query, retrieval.context, req.CustomPrompt)
	} else {
		prompt = BuildLightweightPrompt(req.Query, req.CustomPrompt)
	}

	stream, err := s.generator.GenerateStream(ctx, domainRAG.GenerateRequest{
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   s.llmCfg.MaxTokens,
	})
	if err != nil {
		s.emit(ctx, events, domainRAG.StreamEvent{Type: domainRAG.StreamEventError, Message: err.Error()})
		return
	}

	var full string
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-stream:
			if !ok {
				if full != "" {
					s.semCache.Save(ctx, req.Query, full, citations, req.UserID, req.CollectionID)
				}
				return
			}
			if chunk.Err != nil {
				s.emit(ctx, events, domainRAG.StreamEvent{Type: domainRAG.StreamEventError, Message: chunk.Err.Error()})
				return
			}
			full += chunk.Content
			if !s.emit(ctx, events, domainRAG.StreamEvent{Type: domainRAG.StreamEventChunk, Content: chunk.Content}) {
				return
			}
		}
	}
}

// emit 向消费方发送事件
// 消费方停止拉取后随 ctx 取消返回 false，生产方立即收尾，
// 不能阻塞在满缓冲的通道上
func (s *ChatService) emit(ctx context.Context, events chan<- domainRAG.StreamEvent, ev domainRAG.StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// retrievalResult 一次多路检索的汇总产物
type retrievalResult struct {
	context   string
	citations []domainRAG.SourceCitation
	info      *domainRAG.RetrievalInfo
}

// retrieve 执行复杂度分析、查询扩展与多路向量检索
// 每路检索结果独立走检索缓存，合并后统一去重过滤
func (s *ChatService) retrieve(ctx context.Context, req ChatRequest, baseTopK int) (*retrievalResult, error) {
	params := s.analyzer.GetRetrievalParams(req.Query, baseTopK, s.retrievalCfg.MinScore)
	if params.TopK > s.retrievalCfg.MaxTopK {
		params.TopK = s.retrievalCfg.MaxTopK
	}

	s.logger.Debug("dynamic retrieval params",
		"complexity", params.Complexity, "top_k", params.TopK,
		"min_score", params.MinScore, "expand", params.ExpandQuery,
		"reasoning", params.Reasoning)

	searchQueries := []string{req.Query}
	if params.ExpandQuery {
		if expanded := s.expander.Expand(req.Query); len(expanded) > 1 {
			searchQueries = expanded[:minInt(len(expanded), maxSearchVariants)]
		}
	}

	var all []domainRAG.RetrievedDocument
	for i, q := range searchQueries {
		docs, err := s.searchCached(ctx, q, params.TopK, params.MinScore, req.UserID, req.CollectionID)
		if err != nil {
			// 原始查询失败直接上抛；扩展变体失败仅丢弃该路
			if i == 0 {
				return nil, fmt.Errorf("vector search: %w", err)
			}
			s.logger.Warn("expanded variant search failed",
				"variant", truncateQuery(q), "error", err)
			continue
		}
		all = append(all, docs...)
	}

	filtered := s.filter.DedupAndFilter(all, params.MinScore)
	filtered = s.capContextTokens(filtered)
	citations := s.filter.ToCitations(filtered, params.MinScore, params.TopK)
	contextText := s.filter.ToContext(filtered)

	s.logger.Info("retrieval completed",
		"query", truncateQuery(req.Query), "variants", len(searchQueries),
		"raw_docs", len(all), "filtered_docs", len(filtered), "context_chars", len(contextText))

	return &retrievalResult{
		context:   contextText,
		citations: citations,
		info: &domainRAG.RetrievalInfo{
			Complexity:    params.Complexity,
			TopKUsed:      params.TopK,
			MinScoreUsed:  params.MinScore,
			QueryExpanded: params.ExpandQuery,
			DocsRetrieved: len(filtered),
		},
	}, nil
}

// capContextTokens 按配置的 token 上限截断上下文
// 从排序后的结果尾部整块丢弃，保证高分块优先保留；
// 估算器不可用时不截断
func (s *ChatService) capContextTokens(docs []domainRAG.RetrievedDocument) []domainRAG.RetrievedDocument {
	budget := s.llmCfg.MaxContextTokens
	if budget <= 0 || len(docs) == 0 {
		return docs
	}
	estimator, err := GetTokenEstimator()
	if err != nil {
		s.logger.Warn("token estimator unavailable, context not capped", "error", err)
		return docs
	}

	total := 0
	for i, doc := range docs {
		total += estimator.CountTokens(doc.Content)
		if total > budget && i > 0 {
			// 至少保留最高分的一块，避免误入无上下文分支
			s.logger.Info("context capped by token budget",
				"kept_docs", i, "dropped_docs", len(docs)-i, "budget", budget)
			return docs[:i]
		}
	}
	return docs
}

// searchCached 带检索缓存的单路向量检索
func (s *ChatService) searchCached(ctx context.Context, query string, topK int, minScore float32, userID, collectionID int64) ([]domainRAG.RetrievedDocument, error) {
	key := cache.VectorKey(userID, collectionID, query, topK, minScore)

	var docs []domainRAG.RetrievedDocument
	if s.tiered.Get(key, &docs) {
		s.logger.Debug("vector cache hit", "query", truncateQuery(query))
		return docs, nil
	}

	docs, err := s.vectorIndex.Search(ctx, query, topK, domainRAG.OwnerFilter{
		UserID:       userID,
		CollectionID: collectionID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.tiered.Set(key, docs, time.Duration(s.cacheCfg.VectorTTL)*time.Second); err != nil {
		s.logger.Warn("failed to cache vector results", "error", err)
	}
	return docs, nil
}

// effectiveParams 计算本次请求生效的温度与基准 top_k
func (s *ChatService) effectiveParams(req ChatRequest) (float32, int) {
	temperature := s.llmCfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	baseTopK := s.retrievalCfg.TopK
	if req.TopK != nil && *req.TopK > 0 {
		baseTopK = *req.TopK
	}
	if baseTopK > s.retrievalCfg.MaxTopK {
		baseTopK = s.retrievalCfg.MaxTopK
	}
	return temperature, baseTopK
}
