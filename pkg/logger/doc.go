// Package logger builds *slog.Logger instances for the notification service and
// keeps attribute naming consistent across packages.
//
// New creates a logger from functional options: output format, level, default
// attributes, and ContextExtractor callbacks which inject values stored in the
// record context (for example the request id set by requestid.Middleware).
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "forumnotify"),
//	    logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
//	    logger.WithContextExtractors(
//	        logger.StringExtractor("request_id", requestid.FromContext),
//	    ),
//	)
//	logger.SetAsDefault(log)
//
// Attribute helpers such as UserID, NotificationID, Kind and ConnectionID live
// in attr.go.
package logger
