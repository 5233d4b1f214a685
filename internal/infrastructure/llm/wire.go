package llm

import (
	"github.com/google/wire"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
)

// ProviderSet LLM 基础设施 ProviderSet
var ProviderSet = wire.NewSet(
	NewClient,
	wire.Bind(new(domainRAG.Generator), new(*Client)),
)
