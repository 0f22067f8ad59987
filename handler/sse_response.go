package handler

import (
	"errors"
	"net/http"
	"time"
)

// SSEHandler runs for the lifetime of a Server-Sent Events connection.
// The connection closes when it returns or the client disconnects.
//
// Example:
//
//	handler.SSE(func(stream handler.StreamContext) error {
//		ticker := time.NewTicker(25 * time.Second)
//		defer ticker.Stop()
//
//		for {
//			select {
//			case <-stream.Done():
//				return nil
//			case t := <-ticker.C:
//				if err := stream.Comment("heartbeat " + t.Format(time.RFC3339)); err != nil {
//					return err
//				}
//			}
//		}
//	})
type SSEHandler func(ctx StreamContext) error

// SSEOption configures an SSE response.
type SSEOption func(*sseResponse)

// WithWriteTimeout bounds every single frame write. Each write pushes the
// connection write deadline forward, so a server-wide WriteTimeout does not
// cut long-lived streams. Zero disables deadline management.
func WithWriteTimeout(d time.Duration) SSEOption {
	return func(s *sseResponse) {
		s.writeTimeout = d
	}
}

type sseResponse struct {
	handler      SSEHandler
	writeTimeout time.Duration
}

// Render sends the event-stream headers, flushes them and hands the
// connection to the handler.
func (s sseResponse) Render(w http.ResponseWriter, r *http.Request) error {
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	stream := &streamContext{
		Context:      NewContext(w, r),
		w:            w,
		rc:           rc,
		writeTimeout: s.writeTimeout,
	}
	// A read deadline left by the server's ReadTimeout would cancel the
	// request context of an otherwise healthy stream.
	_ = rc.SetReadDeadline(time.Time{})
	stream.extendDeadline()
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		if errors.Is(err, http.ErrNotSupported) {
			return ErrStreamingUnsupported
		}
		return err
	}

	return s.handler(stream)
}

// SSE creates a streaming response that runs h on the request goroutine.
//
//	return handler.SSE(func(stream handler.StreamContext) error {
//		return stream.Send("connected", map[string]int{"unreadCount": 3})
//	}, handler.WithWriteTimeout(10*time.Second))
func SSE(h SSEHandler, opts ...SSEOption) Response {
	s := sseResponse{handler: h}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
