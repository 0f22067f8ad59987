// Package httpserver runs an http.Handler with graceful shutdown and serves
// health probes.
//
// Server.Run blocks until its context is cancelled, SIGINT/SIGTERM arrives or
// Shutdown is called. Every request context derives from a base context that
// is cancelled as soon as shutdown begins, so live notification streams end
// promptly and clients reconnect elsewhere. Shutdown then waits up to the
// configured timeout for in-flight requests.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
//
// HealthCheckHandler without checks answers liveness probes; with checks
// (pg.Healthcheck, redis.Healthcheck) it answers readiness probes.
package httpserver
