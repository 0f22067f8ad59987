// Package ratelimiter implements token bucket rate limiting with pluggable
// storage and HTTP middleware.
//
// A Bucket holds Capacity tokens and regains RefillRate tokens every
// RefillInterval. Each request takes one token; a request that finds too few
// tokens is denied without draining the bucket further, so clients that keep
// retrying recover as soon as the refill arrives.
//
// Two stores are provided. MemoryStore keeps state per process and evicts
// idle keys in the background. RedisStore runs the same algorithm in a Lua
// script so every instance shares one budget per key.
//
//	store := ratelimiter.NewRedisStore(client, ratelimiter.WithKeyPrefix("forumnotify:stream:"))
//	bucket, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       10,
//		RefillRate:     1,
//		RefillInterval: 6 * time.Second,
//	})
//	router.With(ratelimiter.Middleware(bucket, clientip.FromRequest)).Get("/stream", stream)
//
// Middleware sets X-RateLimit-* headers and Retry-After on denial. When the
// store errors the request is let through and a warning is logged.
package ratelimiter
