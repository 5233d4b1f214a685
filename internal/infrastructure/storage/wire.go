package storage

import "github.com/google/wire"

// ProviderSet Storage 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideDB,             // 提供数据库连接
	NewCacheStore,         // 持久缓存存储
	NewDocumentRepository, // 文档注册仓储
)
