// Package notifications exposes the notification service over HTTP.
//
// Every route sits behind JWT verification. The credential comes from the
// Authorization bearer header or, for EventSource clients that cannot set
// headers, from the token query parameter.
//
//	GET    /                 list (page, pageSize, unreadOnly)
//	GET    /unread-count     unread count
//	PATCH  /{id}/read        mark one notification read
//	PATCH  /read-all         mark every unread notification read
//	GET    /settings         current preferences
//	PATCH  /settings         partial preference update
//	POST   /system           system notification (admin role)
//	GET    /stream           live Server-Sent Events stream
//
// The stream opens with a "connected" frame carrying the unread baseline,
// then forwards every bus event for the user as an SSE frame named after
// the event type. Idle connections receive a heartbeat comment. A client
// that cannot keep up with its buffer is disconnected and expected to
// reconnect and re-sync.
//
// Usage:
//
//	module := notifications.New(svc, bus, tokens,
//		notifications.WithLogger(log),
//		notifications.WithObserver(m),
//		notifications.WithStreamLimiter(bucket),
//	)
//	r.Mount("/api/notifications", module.Handle())
package notifications
