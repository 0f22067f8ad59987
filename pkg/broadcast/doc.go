// Package broadcast implements an in-process, keyed publish/subscribe bus.
//
// A Bus routes messages of type T to the handlers subscribed under a key of
// type K. Publish is synchronous: it invokes every handler registered for the
// key, in registration order, before returning. Publishes for the same key are
// serialised, so all subscriptions of a key observe messages in the same
// order. There is no ordering between different keys.
//
//	bus := broadcast.New[int64, notifications.Event](broadcast.WithLogger(log))
//
//	unsubscribe := bus.Subscribe(userID, func(ctx context.Context, ev notifications.Event) {
//		select {
//		case frames <- ev:
//		default:
//			// slow consumer
//		}
//	})
//	defer unsubscribe()
//
//	bus.Publish(ctx, userID, ev)
//
// A handler that panics is recovered and logged; remaining handlers still
// receive the message. Handlers must not block and must not publish to the
// key they are subscribed to.
package broadcast
