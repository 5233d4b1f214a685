package interfaces

import "github.com/olivia-docs/backend/internal/interfaces/http"

// HTTPServer HTTP 服务器类型别名
type HTTPServer = http.HTTPServer
