package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/forumnotify/handler"
	"github.com/dmitrymomot/forumnotify/pkg/logger"
	"github.com/dmitrymomot/forumnotify/pkg/notifications"
)

const (
	DefaultHeartbeatInterval = 25 * time.Second
	DefaultMaxStreamDuration = 30 * time.Minute
	DefaultStreamBuffer      = 16
	DefaultFrameWriteTimeout = 10 * time.Second
)

// Stream close reasons reported to the observer.
const (
	CloseClientGone  = "client_gone"
	CloseWriteError  = "write_error"
	CloseOverflow    = "overflow"
	CloseMaxDuration = "max_duration"
	CloseInternal    = "internal_error"
)

// StreamConfig tunes live notification streams.
type StreamConfig struct {
	HeartbeatInterval time.Duration `env:"STREAM_HEARTBEAT_INTERVAL" envDefault:"25s"`
	MaxDuration       time.Duration `env:"STREAM_MAX_DURATION" envDefault:"30m"`
	BufferSize        int           `env:"STREAM_BUFFER_SIZE" envDefault:"16"`
	WriteTimeout      time.Duration `env:"STREAM_WRITE_TIMEOUT" envDefault:"10s"`
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = DefaultMaxStreamDuration
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultStreamBuffer
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultFrameWriteTimeout
	}
	return c
}

// connectedFrame is the first frame of every stream.
type connectedFrame struct {
	Type        notifications.EventType `json:"type"`
	UnreadCount int                     `json:"unreadCount"`
	Timestamp   time.Time               `json:"timestamp"`
}

// streamEvents answers an unknown user with a JSON 404 before any stream
// header is written, then hands the connection to the SSE loop.
func (m *Module) streamEvents(ctx handler.Context, _ struct{}) handler.Response {
	userID, err := currentUser(ctx)
	if err != nil {
		return m.fail(ctx, err)
	}
	if err := m.svc.EnsureUser(ctx, userID); err != nil {
		if errors.Is(err, notifications.ErrUserNotFound) {
			m.observer.StreamRejected("unknown_user")
		}
		return m.fail(ctx, err)
	}

	return handler.SSE(func(stream handler.StreamContext) error {
		m.serveStream(stream, userID)
		return nil
	}, handler.WithWriteTimeout(m.stream.WriteTimeout))
}

// serveStream owns the connection until the client leaves or the stream is
// closed for one of the Close* reasons. Write failures end the stream
// quietly: the response is already committed.
func (m *Module) serveStream(stream handler.StreamContext, userID int64) {
	connID := uuid.NewString()
	log := m.logger.With(logger.UserID(userID), logger.ConnectionID(connID))
	started := time.Now()

	frames := make(chan notifications.Event, m.stream.BufferSize)
	overflow := make(chan struct{})
	var overflowOnce sync.Once

	// Runs on the publisher goroutine and must never block it.
	unsubscribe := m.bus.Subscribe(userID, func(_ context.Context, ev notifications.Event) {
		select {
		case frames <- ev:
		default:
			overflowOnce.Do(func() { close(overflow) })
		}
	})
	defer unsubscribe()

	m.observer.StreamOpened()
	reason := CloseClientGone
	defer func() {
		lifetime := time.Since(started)
		m.observer.StreamClosed(reason, lifetime)
		log.LogAttrs(context.Background(), slog.LevelDebug, "stream closed",
			logger.Reason(reason),
			logger.Duration(lifetime),
		)
	}()
	log.DebugContext(stream, "stream opened")

	count, err := m.svc.UnreadCount(stream, userID)
	if err != nil {
		log.WarnContext(stream, "failed to compute unread baseline", logger.Error(err))
		reason = CloseInternal
		return
	}
	if !m.send(stream, log, string(notifications.EventConnected), connectedFrame{
		Type:        notifications.EventConnected,
		UnreadCount: count,
		Timestamp:   time.Now().UTC(),
	}) {
		reason = CloseWriteError
		return
	}

	heartbeat := time.NewTicker(m.stream.HeartbeatInterval)
	defer heartbeat.Stop()
	deadline := time.NewTimer(m.stream.MaxDuration)
	defer deadline.Stop()

	for {
		select {
		case <-stream.Done():
			return
		case <-overflow:
			reason = CloseOverflow
			log.WarnContext(stream, "stream buffer overflow, dropping slow consumer",
				logger.Count(m.stream.BufferSize),
			)
			return
		case <-deadline.C:
			reason = CloseMaxDuration
			return
		case t := <-heartbeat.C:
			if err := stream.Comment("heartbeat " + t.UTC().Format(time.RFC3339)); err != nil {
				log.DebugContext(stream, "heartbeat write failed", logger.Error(err))
				reason = CloseWriteError
				return
			}
		case ev := <-frames:
			if !m.send(stream, log, string(ev.Type), ev) {
				reason = CloseWriteError
				return
			}
		}
	}
}

func (m *Module) send(stream handler.StreamContext, log *slog.Logger, event string, v any) bool {
	if err := stream.Send(event, v); err != nil {
		log.DebugContext(stream, "stream write failed",
			logger.EventType(event),
			logger.Error(err),
		)
		return false
	}
	m.observer.FrameSent(event)
	return true
}
