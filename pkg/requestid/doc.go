// Package requestid attaches a correlation id to every HTTP request.
//
// Middleware reuses a well-formed X-Request-ID header (alphanumerics, dash,
// underscore, at most 128 bytes) or generates a UUIDv4, stores it in the
// request context and echoes it back in the response header. FromContext
// reads it; LoggerExtractor plugs it into logger.New so every record logged
// with a request context carries "request_id".
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	router.Use(requestid.Middleware)
package requestid
