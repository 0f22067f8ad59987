package requestid

import (
	"context"

	"github.com/dmitrymomot/forumnotify/pkg/logger"
)

type contextKey struct{}

func WithContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

// FromContext returns the request id, or "" when none was attached.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(contextKey{}).(string)
	return requestID
}

// LoggerExtractor logs the request id of the record context under "request_id".
func LoggerExtractor() logger.ContextExtractor {
	return logger.StringExtractor("request_id", FromContext)
}
