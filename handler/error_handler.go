package handler

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/forumnotify/pkg/logger"
	"github.com/dmitrymomot/forumnotify/pkg/requestid"
)

// ErrorMapper translates domain errors into errors carrying an HTTPError.
// It must return err unchanged when it has nothing to add.
type ErrorMapper func(err error) error

// NewErrorHandler returns an ErrorHandler that logs the failure and renders
// it as a JSON error envelope. Client errors log at warn, server errors at
// error. Mappers run in order before classification.
func NewErrorHandler(log *slog.Logger, mappers ...ErrorMapper) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		for _, m := range mappers {
			err = m(err)
		}

		r := ctx.Request()
		status, _ := ErrorStatus(err)
		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.LogAttrs(r.Context(), level, "request error",
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		if renderErr := JSONError(err).Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.Error("failed to render error response",
				logger.Error(renderErr),
				logger.Event("render_error"),
			)
		}
	}
}
