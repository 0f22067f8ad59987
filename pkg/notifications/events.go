package notifications

import (
	"context"
	"time"
)

// EventType tags bus events and stream frames.
type EventType string

const (
	EventCreated   EventType = "notification_created"
	EventRead      EventType = "notification_read"
	EventReadAll   EventType = "notification_read_all"
	EventConnected EventType = "connected"
)

// Event is published on the bus for every state change of a user's
// notifications. UnreadCount is recomputed from storage at publish time.
type Event struct {
	Type           EventType     `json:"type"`
	NotificationID int64         `json:"notificationId,omitempty"`
	Notification   *Notification `json:"notification,omitempty"`
	Updated        int           `json:"updated,omitempty"`
	UnreadCount    int           `json:"unreadCount"`
	Timestamp      time.Time     `json:"timestamp"`
}

// Publisher delivers events to live subscribers of a user.
// *broadcast.Bus[int64, Event] satisfies it.
type Publisher interface {
	Publish(ctx context.Context, userID int64, ev Event) int
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, int64, Event) int { return 0 }
