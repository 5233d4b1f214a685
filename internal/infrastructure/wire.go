package infrastructure

import (
	"github.com/google/wire"
	"github.com/olivia-docs/backend/internal/infrastructure/cache"
	"github.com/olivia-docs/backend/internal/infrastructure/config"
	"github.com/olivia-docs/backend/internal/infrastructure/embedding"
	"github.com/olivia-docs/backend/internal/infrastructure/llm"
	"github.com/olivia-docs/backend/internal/infrastructure/progress"
	"github.com/olivia-docs/backend/internal/infrastructure/storage"
	"github.com/olivia-docs/backend/internal/infrastructure/vector"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	cache.ProviderSet,
	embedding.ProviderSet,
	llm.ProviderSet,
	vector.ProviderSet,
	progress.ProviderSet,
)
