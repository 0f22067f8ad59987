package ratelimiter

import (
	"hash/fnv"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/forumnotify/pkg/logger"
)

// maxKeyLength bounds storage keys; longer composites are hashed.
const maxKeyLength = 64

// KeyFunc extracts a rate limit key from the request.
// An empty key skips limiting for that request.
type KeyFunc func(r *http.Request) string

// Composite joins the non-empty keys of several KeyFuncs with ":".
// Long results are hashed with FNV-1a.
func Composite(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(keyFuncs))
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}
		combined := strings.Join(parts, ":")
		if len(combined) <= maxKeyLength {
			return combined
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(combined))
		return strconv.FormatUint(h.Sum64(), 36)
	}
}

// Static returns a KeyFunc yielding a fixed key, e.g. a route name.
func Static(key string) KeyFunc {
	return func(*http.Request) string { return key }
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	onLimited http.HandlerFunc
	logger    *slog.Logger
	now       func() time.Time
}

// WithLimitedHandler replaces the default plain-text 429 response.
// Rate limit headers are already set when it runs.
func WithLimitedHandler(h http.HandlerFunc) MiddlewareOption {
	return func(c *middlewareConfig) {
		if h != nil {
			c.onLimited = h
		}
	}
}

func WithLogger(l *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Middleware limits requests per key. Store failures fail open: the request
// proceeds and the failure is logged.
func Middleware(b *Bucket, keyFunc KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		onLimited: func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := b.Allow(r.Context(), key)
			if err != nil {
				cfg.logger.WarnContext(r.Context(), "rate limit check failed, allowing request",
					logger.Component("ratelimiter"),
					logger.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed() {
				retryAfter := int(result.RetryAfter(cfg.now()).Round(time.Second).Seconds())
				h.Set("Retry-After", strconv.Itoa(max(1, retryAfter)))
				cfg.onLimited(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
