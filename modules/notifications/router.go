package notifications

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/forumnotify/handler"
	"github.com/dmitrymomot/forumnotify/pkg/binder"
	"github.com/dmitrymomot/forumnotify/pkg/broadcast"
	"github.com/dmitrymomot/forumnotify/pkg/clientip"
	"github.com/dmitrymomot/forumnotify/pkg/jwt"
	"github.com/dmitrymomot/forumnotify/pkg/logger"
	"github.com/dmitrymomot/forumnotify/pkg/notifications"
	"github.com/dmitrymomot/forumnotify/pkg/ratelimiter"
)

// RoleAdmin is the token role allowed to send system notifications.
const RoleAdmin = "admin"

// Subscriber attaches stream handlers to a user's event channel.
// *broadcast.Bus[int64, notifications.Event] satisfies it.
type Subscriber interface {
	Subscribe(userID int64, h broadcast.Handler[notifications.Event]) (unsubscribe func())
}

// StreamObserver receives stream lifecycle signals, typically metrics.
type StreamObserver interface {
	StreamOpened()
	StreamClosed(reason string, lifetime time.Duration)
	StreamRejected(reason string)
	FrameSent(event string)
}

type noopObserver struct{}

func (noopObserver) StreamOpened()                      {}
func (noopObserver) StreamClosed(string, time.Duration) {}
func (noopObserver) StreamRejected(string)              {}
func (noopObserver) FrameSent(string)                   {}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the logger used for request failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithObserver receives stream lifecycle signals.
func WithObserver(o StreamObserver) Option {
	return func(m *Module) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithStreamConfig overrides the stream timings and buffer size.
// Zero fields keep their defaults.
func WithStreamConfig(cfg StreamConfig) Option {
	return func(m *Module) {
		m.stream = cfg.withDefaults()
	}
}

// WithStreamLimiter limits stream connection attempts per client IP.
func WithStreamLimiter(b *ratelimiter.Bucket) Option {
	return func(m *Module) {
		m.limiter = b
	}
}

// Module serves the notification HTTP API.
type Module struct {
	svc      *notifications.Service
	bus      Subscriber
	tokens   *jwt.Service
	logger   *slog.Logger
	observer StreamObserver
	stream   StreamConfig
	limiter  *ratelimiter.Bucket

	errorHandler handler.ErrorHandler[handler.Context]
}

// New builds the module. svc handles every operation, bus feeds the live
// stream and tokens verifies bearer credentials.
func New(svc *notifications.Service, bus Subscriber, tokens *jwt.Service, opts ...Option) *Module {
	m := &Module{
		svc:      svc,
		bus:      bus,
		tokens:   tokens,
		logger:   slog.Default(),
		observer: noopObserver{},
		stream:   StreamConfig{}.withDefaults(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.errorHandler = handler.NewErrorHandler(m.logger, MapError)
	m.logger = m.logger.With(logger.Component("notifications_api"))
	return m
}

// Handle returns the router to mount under /api/notifications.
//
//	r := chi.NewRouter()
//	r.Mount("/api/notifications", notificationsModule.Handle())
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(jwt.MiddlewareWithConfig(jwt.MiddlewareConfig{
			Service:      m.tokens,
			Extractor:    jwt.BearerTokenExtractor,
			ErrorHandler: m.unauthorized,
		}))

		r.Get("/", handler.Wrap(m.list,
			handler.WithBinders[handler.Context, ListRequest](binder.Query()),
			handler.WithErrorHandler[handler.Context, ListRequest](m.errorHandler),
		))
		r.Get("/unread-count", handler.Wrap(m.unreadCount,
			handler.WithErrorHandler[handler.Context, struct{}](m.errorHandler),
		))
		r.Patch("/read-all", handler.Wrap(m.markAllRead,
			handler.WithErrorHandler[handler.Context, struct{}](m.errorHandler),
		))
		r.Patch("/{id}/read", handler.Wrap(m.markRead,
			handler.WithBinders[handler.Context, MarkReadRequest](binder.Path(chi.URLParam)),
			handler.WithErrorHandler[handler.Context, MarkReadRequest](m.errorHandler),
		))

		r.Get("/settings", handler.Wrap(m.getSettings,
			handler.WithErrorHandler[handler.Context, struct{}](m.errorHandler),
		))
		r.Patch("/settings", handler.Wrap(m.updateSettings,
			handler.WithBinders[handler.Context, UpdateSettingsRequest](binder.JSON()),
			handler.WithErrorHandler[handler.Context, UpdateSettingsRequest](m.errorHandler),
		))

		// The role check runs before the body is bound.
		r.With(requireRole(RoleAdmin)).Post("/system", handler.Wrap(m.createSystem,
			handler.WithBinders[handler.Context, SystemRequest](binder.JSON()),
			handler.WithErrorHandler[handler.Context, SystemRequest](m.errorHandler),
		))
	})

	// EventSource cannot set headers, so the stream also accepts ?token=.
	r.Group(func(r chi.Router) {
		r.Use(jwt.MiddlewareWithConfig(jwt.MiddlewareConfig{
			Service: m.tokens,
			Extractor: jwt.FirstOf(
				jwt.BearerTokenExtractor,
				jwt.QueryTokenExtractor("token"),
			),
			ErrorHandler: m.streamUnauthorized,
		}))
		if m.limiter != nil {
			r.Use(ratelimiter.Middleware(m.limiter, clientip.FromRequest,
				ratelimiter.WithLogger(m.logger),
				ratelimiter.WithLimitedHandler(m.rateLimited),
			))
		}
		r.Get("/stream", handler.Wrap(m.streamEvents,
			handler.WithErrorHandler[handler.Context, struct{}](m.errorHandler),
		))
	})

	return r
}

func (m *Module) unauthorized(w http.ResponseWriter, r *http.Request, _ error) {
	_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
}

func (m *Module) streamUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	m.observer.StreamRejected("unauthorized")
	m.unauthorized(w, r, err)
}

func (m *Module) rateLimited(w http.ResponseWriter, r *http.Request) {
	m.observer.StreamRejected("rate_limited")
	_ = handler.JSONError(handler.ErrTooManyRequests).Render(w, r)
}
