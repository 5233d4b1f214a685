package vector

import (
	"github.com/google/wire"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
)

// ProviderSet 向量索引 ProviderSet
var ProviderSet = wire.NewSet(
	NewQdrantStore,
	wire.Bind(new(domainRAG.VectorIndex), new(*QdrantStore)),
)
