package notifications

import (
	"context"
	"time"
)

// Storage persists notifications.
type Storage interface {
	// Create inserts n and returns it with ID and CreatedAt assigned.
	Create(ctx context.Context, n Notification) (Notification, error)

	// List returns a page of the user's notifications ordered by id
	// descending, and the total number of rows matching the filter.
	List(ctx context.Context, userID int64, opts ListOptions) ([]Notification, int, error)

	// CountUnread counts unread rows for the user.
	CountUnread(ctx context.Context, userID int64) (int, error)

	// MarkRead flips one unread notification owned by userID to read.
	// It returns false without error when the notification was already read
	// and ErrNotificationNotFound when it does not exist or is not owned by userID.
	MarkRead(ctx context.Context, userID, notificationID int64, at time.Time) (bool, error)

	// MarkAllRead flips every notification that is unread at statement time
	// and returns how many changed.
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int, error)
}

// ListOptions is the storage-level form of ListParams.
type ListOptions struct {
	Limit      int
	Offset     int
	OnlyUnread bool
}

// SettingsStorage persists per-user settings.
type SettingsStorage interface {
	// GetOrCreate returns the stored settings, inserting defaults when the
	// user has none. Concurrent first calls must not fail or create duplicates.
	GetOrCreate(ctx context.Context, defaults Settings) (Settings, error)

	// Update applies patch to the stored row and returns the result.
	// The row must exist.
	Update(ctx context.Context, userID int64, patch SettingsPatch, at time.Time) (Settings, error)
}

// Profile is the directory view of a forum user.
type Profile struct {
	ID        int64
	Username  string
	AvatarURL string
	Role      string
}

// UserDirectory answers questions about forum users. It is owned by the forum.
type UserDirectory interface {
	Exists(ctx context.Context, userID int64) (bool, error)
	// Profiles returns the known profiles among ids. Unknown ids are omitted.
	Profiles(ctx context.Context, ids []int64) (map[int64]Profile, error)
}
