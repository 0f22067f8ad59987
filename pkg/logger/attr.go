package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}

// ActorID records the originating user of a notification.
// A nil actor (system notification) yields an empty Attr.
func ActorID(id *int64) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Int64("actor_id", *id)
}

// NotificationID records the notification identifier under the key "notification_id".
func NotificationID(id int64) slog.Attr {
	return slog.Int64("notification_id", id)
}

// Kind records the notification kind under the key "kind".
func Kind(kind string) slog.Attr {
	return slog.String("kind", kind)
}

// Role records a role name under the key "role".
// An empty role yields an empty Attr.
func Role(role string) slog.Attr {
	if role == "" {
		return slog.Attr{}
	}
	return slog.String("role", role)
}

// RequestID records the request identifier under the key "request_id".
// An empty id yields an empty Attr.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// ConnectionID records a live stream connection identifier.
func ConnectionID(id string) slog.Attr {
	return slog.String("connection_id", id)
}

// Reason records why something was suppressed, rejected or closed.
func Reason(reason string) slog.Attr {
	return slog.String("reason", reason)
}

// EventType records a bus or stream event type under the key "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Event(name string) slog.Attr {
	return slog.String("event", name)
}
