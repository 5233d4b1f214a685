package cache

import "github.com/google/wire"

// ProviderSet 缓存基础设施 ProviderSet
var ProviderSet = wire.NewSet(
	NewTieredCache,
)
