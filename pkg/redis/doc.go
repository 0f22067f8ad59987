// Package redis connects to an optional Redis server.
//
// Config is populated from REDIS_* environment variables. When REDIS_URL is
// empty, Config.Enabled reports false and Connect returns
// ErrEmptyConnectionURL; the service then keeps rate limit state in memory.
// Healthcheck adapts a client to the readiness probe.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//	if cfg.Enabled() {
//		client, err := redis.Connect(ctx, cfg)
//		...
//	}
package redis
