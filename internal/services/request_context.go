package services

import (
	"context"

	"github.com/google/uuid"
)

// RequestInfo describes the caller of an operation for audit purposes
type RequestInfo struct {
	IPAddress string
	UserAgent string
	UserID    uuid.UUID
	Source    string
}

type requestInfoKey struct{}

// WithRequestInfo attaches caller details to ctx
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFrom returns the caller details attached to ctx, if any
func RequestInfoFrom(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}
