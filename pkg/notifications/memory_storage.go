package notifications

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStorage keeps notifications, settings and a user directory in memory.
// It implements Storage, SettingsStorage and UserDirectory and is meant for
// development and tests.
type MemoryStorage struct {
	mu            sync.RWMutex
	lastID        int64
	notifications map[int64][]Notification // user id -> ascending by id
	settings      map[int64]Settings
	users         map[int64]Profile
	now           func() time.Time
}

// NewMemoryStorage creates an empty storage seeded with users.
func NewMemoryStorage(users ...Profile) *MemoryStorage {
	s := &MemoryStorage{
		notifications: make(map[int64][]Notification),
		settings:      make(map[int64]Settings),
		users:         make(map[int64]Profile),
		now:           time.Now,
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

// AddUser registers or replaces a directory entry.
func (s *MemoryStorage) AddUser(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[p.ID] = p
}

// Exists reports whether userID was registered.
func (s *MemoryStorage) Exists(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok, nil
}

// Profiles returns the registered profiles among ids.
func (s *MemoryStorage) Profiles(_ context.Context, ids []int64) (map[int64]Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]Profile, len(ids))
	for _, id := range ids {
		if p, ok := s.users[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// Create stores n under the next id. Recipients need not be registered.
func (s *MemoryStorage) Create(_ context.Context, n Notification) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	n.ID = s.lastID
	n.IsRead = false
	n.ReadAt = nil
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	s.notifications[n.UserID] = append(s.notifications[n.UserID], n)
	return n, nil
}

// List returns one page, newest first, and the total before paging.
func (s *MemoryStorage) List(_ context.Context, userID int64, opts ListOptions) ([]Notification, int, error) {
	if opts.Offset < 0 {
		return nil, 0, fmt.Errorf("%w: negative offset", ErrInvalidArgument)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.notifications[userID]
	matched := make([]Notification, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		if opts.OnlyUnread && rows[i].IsRead {
			continue
		}
		matched = append(matched, rows[i])
	}

	total := len(matched)
	if opts.Offset >= total {
		return []Notification{}, total, nil
	}
	end := total
	if opts.Limit > 0 && opts.Limit < total-opts.Offset {
		end = opts.Offset + opts.Limit
	}
	return slices.Clone(matched[opts.Offset:end]), total, nil
}

// CountUnread counts unread rows for the user.
func (s *MemoryStorage) CountUnread(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications[userID] {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

// MarkRead marks one notification read. It returns false if it already was.
func (s *MemoryStorage) MarkRead(_ context.Context, userID, notificationID int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.notifications[userID]
	for i := range rows {
		if rows[i].ID != notificationID {
			continue
		}
		if rows[i].IsRead {
			return false, nil
		}
		rows[i].IsRead = true
		rows[i].ReadAt = &at
		return true, nil
	}
	return false, ErrNotificationNotFound
}

// MarkAllRead returns the number of rows it changed.
func (s *MemoryStorage) MarkAllRead(_ context.Context, userID int64, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.notifications[userID]
	changed := 0
	for i := range rows {
		if !rows[i].IsRead {
			rows[i].IsRead = true
			rows[i].ReadAt = &at
			changed++
		}
	}
	return changed, nil
}

// GetOrCreate returns stored settings, storing defaults first if needed.
func (s *MemoryStorage) GetOrCreate(_ context.Context, defaults Settings) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.settings[defaults.UserID]; ok {
		return st, nil
	}
	s.settings[defaults.UserID] = defaults
	return defaults, nil
}

// Update applies the non-nil fields of patch.
func (s *MemoryStorage) Update(_ context.Context, userID int64, patch SettingsPatch, at time.Time) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.settings[userID]
	if !ok {
		return Settings{}, ErrUserNotFound
	}
	st = patch.Apply(st)
	st.UpdatedAt = at
	s.settings[userID] = st
	return st, nil
}
