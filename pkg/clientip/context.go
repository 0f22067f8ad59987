package clientip

import (
	"context"
	"net/http"
)

type contextKey struct{}

func WithContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

// FromContext returns the IP stored by Middleware, or "".
func FromContext(ctx context.Context) string {
	ip, _ := ctx.Value(contextKey{}).(string)
	return ip
}

// FromRequest reads the client IP of r; it is usable as a rate limit key function.
func FromRequest(r *http.Request) string {
	return FromContext(r.Context())
}
