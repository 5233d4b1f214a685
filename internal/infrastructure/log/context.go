package log

import (
	"context"
	"log/slog"
)

// 上下文键定义
const (
	// RequestContextID HTTP 请求 ID
	RequestContextID = "request_id"

	// UserContextID 用户 ID
	UserContextID = "user_id"

	// CollectionContextID 文档集合 ID
	CollectionContextID = "collection_id"

	// SessionContextID 会话 ID
	SessionContextID = "session_id"

	// TaskContextID 摄取任务 ID
	TaskContextID = "task_id"
)

// WithRequestID 在上下文中添加请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestContextID, requestID)
}

// WithUserID 在上下文中添加用户 ID
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserContextID, userID)
}

// WithCollectionID 在上下文中添加集合 ID
func WithCollectionID(ctx context.Context, collectionID string) context.Context {
	return context.WithValue(ctx, CollectionContextID, collectionID)
}

// WithSessionID 在上下文中添加会话 ID
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionContextID, sessionID)
}

// WithTaskID 在上下文中添加摄取任务 ID
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, TaskContextID, taskID)
}

// LogCtxFromContext 从上下文中提取日志字段
func LogCtxFromContext(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if requestID := ctx.Value(RequestContextID); requestID != nil {
		attrs = append(attrs, slog.String("request_id", requestID.(string)))
	}
	if userID := ctx.Value(UserContextID); userID != nil {
		attrs = append(attrs, slog.String("user_id", userID.(string)))
	}
	if collectionID := ctx.Value(CollectionContextID); collectionID != nil {
		attrs = append(attrs, slog.String("collection_id", collectionID.(string)))
	}
	if sessionID := ctx.Value(SessionContextID); sessionID != nil {
		attrs = append(attrs, slog.String("session_id", sessionID.(string)))
	}
	if taskID := ctx.Value(TaskContextID); taskID != nil {
		attrs = append(attrs, slog.String("task_id", taskID.(string)))
	}

	return attrs
}
