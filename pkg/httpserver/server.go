package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrymomot/forumnotify/pkg/logger"
)

var (
	ErrStart    = errors.New("http server failed to start")
	ErrShutdown = errors.New("http server did not shut down gracefully")
)

type config struct {
	addr              string
	readTimeout       time.Duration
	readHeaderTimeout time.Duration
	writeTimeout      time.Duration
	idleTimeout       time.Duration
	shutdownTimeout   time.Duration
	logger            *slog.Logger
}

func defaultConfig() *config {
	return &config{
		addr:              ":8080",
		readHeaderTimeout: 10 * time.Second,
		shutdownTimeout:   10 * time.Second,
		logger:            slog.Default(),
	}
}

// Server wraps http.Server with graceful shutdown. Request contexts derive
// from a base context that is cancelled when shutdown starts, so long-lived
// streaming handlers return instead of holding shutdown open.
type Server struct {
	cfg *config

	mu         sync.Mutex
	srv        *http.Server
	cancelBase context.CancelFunc
	once       sync.Once
}

func New(opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Server{cfg: cfg}
}

// Run listens on the configured address and serves until ctx is done, an
// interrupt or TERM signal arrives, or Shutdown is called.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	ln, err := net.Listen("tcp", s.cfg.addr)
	if err != nil {
		return errors.Join(ErrStart, err)
	}
	return s.Serve(ctx, ln, handler)
}

// Serve is Run on an existing listener. The listener is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	baseCtx, cancelBase := context.WithCancel(context.WithoutCancel(ctx))
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       s.cfg.readTimeout,
		ReadHeaderTimeout: s.cfg.readHeaderTimeout,
		WriteTimeout:      s.cfg.writeTimeout,
		IdleTimeout:       s.cfg.idleTimeout,
		ErrorLog:          slog.NewLogLogger(s.cfg.logger.Handler(), slog.LevelWarn),
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		cancelBase()
		_ = ln.Close()
		return errors.Join(ErrStart, errors.New("server already running"))
	}
	s.srv = srv
	s.cancelBase = cancelBase
	s.mu.Unlock()
	defer cancelBase()

	s.cfg.logger.Info("http server started",
		logger.Component("httpserver"),
		slog.String("addr", ln.Addr().String()),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case <-ctx.Done():
		runErr = s.Shutdown(context.Background())
		<-errCh
	case sig := <-stop:
		s.cfg.logger.Info("shutdown signal received",
			logger.Component("httpserver"),
			slog.String("signal", sig.String()),
		)
		runErr = s.Shutdown(context.Background())
		<-errCh
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Join(ErrStart, err)
		}
	}
	return runErr
}

// Shutdown stops the server gracefully within the shutdown timeout. Active
// request contexts are cancelled first. Safe for repeated calls.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	var err error
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.shutdownTimeout)
		defer cancel()

		start := time.Now()
		err = srv.Shutdown(ctx)
		s.cfg.logger.Info("http server stopped",
			logger.Component("httpserver"),
			logger.Duration(time.Since(start)),
		)
	})
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrShutdown, err)
	}
	return nil
}
