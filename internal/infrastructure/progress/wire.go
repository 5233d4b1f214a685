package progress

import (
	"github.com/google/wire"

	domainRAG "github.com/olivia-docs/backend/internal/domain/rag"
)

// ProviderSet 进度推送 ProviderSet
var ProviderSet = wire.NewSet(
	NewHub,
	NewService,
	wire.Bind(new(domainRAG.ProgressSink), new(*Service)),
)
