package utils

import "context"

type ctxKey string

const internalRequestKey ctxKey = "internal_request"

// WithInternalRequest marks a request that authenticated as a trusted service.
func WithInternalRequest(ctx context.Context) context.Context {
	return context.WithValue(ctx, internalRequestKey, true)
}

func IsInternalRequest(ctx context.Context) bool {
	v, _ := ctx.Value(internalRequestKey).(bool)
	return v
}
