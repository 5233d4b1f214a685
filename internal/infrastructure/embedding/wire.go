package embedding

import (
	"github.com/google/wire"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
)

// ProviderSet Embedding 基础设施 ProviderSet
var ProviderSet = wire.NewSet(
	NewClient,
	NewCachedEmbedder,
	wire.Bind(new(domainRAG.Embedder), new(*CachedEmbedder)),
)
