package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dmitrymomot/forumnotify/pkg/logger"
)

// Handler receives messages published under the key it is subscribed to.
type Handler[T any] func(ctx context.Context, msg T)

// PanicHook is called after a handler panic was recovered.
type PanicHook func(key any, recovered any)

// Bus is an in-process publish/subscribe router keyed by K.
// The zero value is not usable; create buses with New.
type Bus[K comparable, T any] struct {
	mu     sync.Mutex
	topics map[K]*topic[T]
	nextID uint64
	closed bool

	logger  *slog.Logger
	onPanic PanicHook
}

type topic[T any] struct {
	// publishing serialises Publish calls for one key.
	publishing sync.Mutex
	// subs is replaced, never mutated in place, so a publisher can iterate a
	// snapshot without holding Bus.mu.
	subs []subscription[T]
}

type subscription[T any] struct {
	id      uint64
	handler Handler[T]
}

// Option configures a Bus.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	onPanic PanicHook
}

// WithLogger sets the logger used to report recovered handler panics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPanicHook registers a callback invoked for every recovered handler panic.
func WithPanicHook(fn PanicHook) Option {
	return func(o *options) {
		o.onPanic = fn
	}
}

// New creates an empty bus.
func New[K comparable, T any](opts ...Option) *Bus[K, T] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Bus[K, T]{
		topics:  make(map[K]*topic[T]),
		logger:  o.logger.With(logger.Component("broadcast")),
		onPanic: o.onPanic,
	}
}

// Subscribe registers h for key and returns a function that removes it.
// The returned function is idempotent. Subscribing to a closed bus returns a
// no-op unsubscribe and h is never called.
func (b *Bus[K, T]) Subscribe(key K, h Handler[T]) (unsubscribe func()) {
	if h == nil {
		return func() {}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	id := b.nextID

	t, ok := b.topics[key]
	if !ok {
		t = &topic[T]{}
		b.topics[key] = t
	}
	subs := make([]subscription[T], len(t.subs), len(t.subs)+1)
	copy(subs, t.subs)
	t.subs = append(subs, subscription[T]{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(key, id) })
	}
}

func (b *Bus[K, T]) remove(key K, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[key]
	if !ok {
		return
	}
	t.subs = slices.DeleteFunc(slices.Clone(t.subs), func(s subscription[T]) bool {
		return s.id == id
	})
	if len(t.subs) == 0 {
		delete(b.topics, key)
	}
}

// Publish delivers msg to every handler subscribed under key and returns the
// number of handlers that completed without panicking. It returns 0 when the
// key has no subscribers.
func (b *Bus[K, T]) Publish(ctx context.Context, key K, msg T) int {
	for {
		b.mu.Lock()
		t, ok := b.topics[key]
		b.mu.Unlock()
		if !ok {
			return 0
		}
		if n, live := b.publishTo(ctx, key, t, msg); live {
			return n
		}
	}
}

// publishTo delivers msg to the subscribers of t. It reports live=false
// without delivering when t was dropped from the bus while the caller waited
// for its turn; the key may have been re-created since.
func (b *Bus[K, T]) publishTo(ctx context.Context, key K, t *topic[T], msg T) (delivered int, live bool) {
	t.publishing.Lock()
	defer t.publishing.Unlock()

	b.mu.Lock()
	live = b.topics[key] == t
	subs := t.subs
	b.mu.Unlock()
	if !live {
		return 0, false
	}

	for _, s := range subs {
		if b.call(ctx, key, s.handler, msg) {
			delivered++
		}
	}
	return delivered, true
}

func (b *Bus[K, T]) call(ctx context.Context, key K, h Handler[T], msg T) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			b.logger.LogAttrs(ctx, slog.LevelError, "subscriber handler panicked",
				slog.String("key", fmt.Sprint(key)),
				slog.Any("panic", r),
			)
			if b.onPanic != nil {
				b.onPanic(key, r)
			}
		}
	}()
	h(ctx, msg)
	return true
}

// Subscribers returns the number of live subscriptions for key.
func (b *Bus[K, T]) Subscribers(key K) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.topics[key]; ok {
		return len(t.subs)
	}
	return 0
}

// Keys returns the number of keys with at least one subscription.
func (b *Bus[K, T]) Keys() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics)
}

// Close drops every subscription. Later Subscribe calls are no-ops and
// Publish delivers nothing.
func (b *Bus[K, T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	clear(b.topics)
}
