package notifications_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/forumnotify/pkg/broadcast"
	"github.com/dmitrymomot/forumnotify/pkg/notifications"

	api "github.com/dmitrymomot/forumnotify/modules/notifications"
)

type recordingObserver struct {
	mu       sync.Mutex
	opened   int
	closed   []string
	rejected []string
	frames   []string
}

func (o *recordingObserver) StreamOpened() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened++
}

func (o *recordingObserver) StreamClosed(reason string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = append(o.closed, reason)
}

func (o *recordingObserver) StreamRejected(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, reason)
}

func (o *recordingObserver) FrameSent(event string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frames = append(o.frames, event)
}

func (o *recordingObserver) closeReasons() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.closed...)
}

func (o *recordingObserver) rejections() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.rejected...)
}

type frame struct {
	event   string
	data    string
	comment string
}

// sseReader reads frames from an open event stream.
type sseReader struct {
	r *bufio.Reader
}

func (s sseReader) next() (frame, error) {
	var f frame
	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			return f, err
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return f, nil
		case strings.HasPrefix(line, ": "):
			f.comment = strings.TrimPrefix(line, ": ")
		case strings.HasPrefix(line, "event: "):
			f.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			f.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func openStream(t *testing.T, srv *httptest.Server, target, token string) (*http.Response, sseReader, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+target, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		_ = resp.Body.Close()
	})
	return resp, sseReader{r: bufio.NewReader(resp.Body)}, cancel
}

func TestStream(t *testing.T) {
	t.Parallel()
	observer := &recordingObserver{}
	f := newFixture(t, api.WithObserver(observer))
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	f.follow(t, alice, bob)

	resp, stream, cancel := openStream(t, srv, "/stream", f.token(t, alice, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	connected, err := stream.next()
	require.NoError(t, err)
	assert.Equal(t, "connected", connected.event)

	var baseline struct {
		Type        string    `json:"type"`
		UnreadCount int       `json:"unreadCount"`
		Timestamp   time.Time `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal([]byte(connected.data), &baseline))
	assert.Equal(t, "connected", baseline.Type)
	assert.Equal(t, 1, baseline.UnreadCount)
	assert.False(t, baseline.Timestamp.IsZero())
	assert.Equal(t, 1, f.bus.Subscribers(alice))

	id := f.follow(t, alice, admin)

	created, err := stream.next()
	require.NoError(t, err)
	assert.Equal(t, string(notifications.EventCreated), created.event)

	var ev notifications.Event
	require.NoError(t, json.Unmarshal([]byte(created.data), &ev))
	assert.Equal(t, id, ev.NotificationID)
	assert.Equal(t, 2, ev.UnreadCount)
	require.NotNil(t, ev.Notification)
	assert.Equal(t, notifications.KindFollow, ev.Notification.Kind)

	_, err = f.svc.MarkAllRead(t.Context(), alice)
	require.NoError(t, err)

	readAll, err := stream.next()
	require.NoError(t, err)
	assert.Equal(t, string(notifications.EventReadAll), readAll.event)

	cancel()
	require.Eventually(t, func() bool {
		return f.bus.Subscribers(alice) == 0
	}, 2*time.Second, 10*time.Millisecond, "subscription released on disconnect")
	require.Eventually(t, func() bool {
		return len(observer.closeReasons()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{api.CloseClientGone}, observer.closeReasons())
}

func TestStream_OtherUsersEventsAreIsolated(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	_, stream, _ := openStream(t, srv, "/stream", f.token(t, alice, ""))
	_, err := stream.next()
	require.NoError(t, err)

	f.follow(t, bob, admin)
	id := f.follow(t, alice, admin)

	next, err := stream.next()
	require.NoError(t, err)
	var ev notifications.Event
	require.NoError(t, json.Unmarshal([]byte(next.data), &ev))
	assert.Equal(t, id, ev.NotificationID, "bob's notification never reaches alice")
}

func TestStream_FanOutToEveryConnection(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	token := f.token(t, alice, "")
	_, first, _ := openStream(t, srv, "/stream", token)
	_, second, cancelSecond := openStream(t, srv, "/stream", token)
	for _, s := range []sseReader{first, second} {
		_, err := s.next()
		require.NoError(t, err)
	}
	require.Equal(t, 2, f.bus.Subscribers(alice))

	id := f.follow(t, alice, bob)
	for _, s := range []sseReader{first, second} {
		fr, err := s.next()
		require.NoError(t, err)
		var ev notifications.Event
		require.NoError(t, json.Unmarshal([]byte(fr.data), &ev))
		assert.Equal(t, id, ev.NotificationID)
		assert.Equal(t, 1, ev.UnreadCount)
	}

	cancelSecond()
	require.Eventually(t, func() bool {
		return f.bus.Subscribers(alice) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The remaining connection keeps receiving.
	f.follow(t, alice, admin)
	fr, err := first.next()
	require.NoError(t, err)
	assert.Equal(t, string(notifications.EventCreated), fr.event)
}

func TestStream_QueryToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	resp, stream, _ := openStream(t, srv, "/stream?token="+f.token(t, alice, ""), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	connected, err := stream.next()
	require.NoError(t, err)
	assert.Equal(t, "connected", connected.event)
}

func TestStream_Rejections(t *testing.T) {
	t.Parallel()
	observer := &recordingObserver{}
	f := newFixture(t, api.WithObserver(observer))
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing credential", "", http.StatusUnauthorized},
		{"invalid credential", "nope", http.StatusUnauthorized},
		{"unknown user", f.token(t, ghost, ""), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _, _ := openStream(t, srv, "/stream", tt.token)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
		})
	}

	assert.Zero(t, f.bus.Keys(), "no subscription is created for rejected streams")
	assert.Equal(t, []string{"unauthorized", "unauthorized", "unknown_user"}, observer.rejections())
}

func TestStream_Heartbeat(t *testing.T) {
	t.Parallel()
	f := newFixture(t, api.WithStreamConfig(api.StreamConfig{HeartbeatInterval: 20 * time.Millisecond}))
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	_, stream, _ := openStream(t, srv, "/stream", f.token(t, alice, ""))
	_, err := stream.next()
	require.NoError(t, err)

	beat, err := stream.next()
	require.NoError(t, err)
	assert.Empty(t, beat.event)
	require.True(t, strings.HasPrefix(beat.comment, "heartbeat "), beat.comment)
	_, err = time.Parse(time.RFC3339, strings.TrimPrefix(beat.comment, "heartbeat "))
	assert.NoError(t, err)
}

func TestStream_MaxDuration(t *testing.T) {
	t.Parallel()
	observer := &recordingObserver{}
	f := newFixture(t,
		api.WithObserver(observer),
		api.WithStreamConfig(api.StreamConfig{MaxDuration: 50 * time.Millisecond}),
	)
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	_, stream, _ := openStream(t, srv, "/stream", f.token(t, alice, ""))
	_, err := stream.next()
	require.NoError(t, err)

	_, err = stream.next()
	require.ErrorIs(t, err, io.EOF)

	require.Eventually(t, func() bool {
		return f.bus.Subscribers(alice) == 0
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{api.CloseMaxDuration}, observer.closeReasons())
}

// burstBus delivers n events while subscribing, before the stream loop can
// drain any of them.
type burstBus struct {
	n int
}

func (b burstBus) Subscribe(_ int64, h broadcast.Handler[notifications.Event]) func() {
	for range b.n {
		h(context.Background(), notifications.Event{Type: notifications.EventReadAll})
	}
	return func() {}
}

func TestStream_SlowConsumerIsDropped(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	observer := &recordingObserver{}
	module := api.New(f.svc, burstBus{n: 5}, f.tokens,
		api.WithObserver(observer),
		api.WithStreamConfig(api.StreamConfig{BufferSize: 1}),
	)
	srv := httptest.NewServer(module.Handle())
	t.Cleanup(srv.Close)

	_, stream, _ := openStream(t, srv, "/stream", f.token(t, alice, ""))
	connected, err := stream.next()
	require.NoError(t, err)
	assert.Equal(t, "connected", connected.event)

	for {
		if _, err = stream.next(); err != nil {
			break
		}
	}
	require.ErrorIs(t, err, io.EOF)

	require.Eventually(t, func() bool {
		return len(observer.closeReasons()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{api.CloseOverflow}, observer.closeReasons())
}
