package notifications

import (
	"context"
	"fmt"
	"time"
)

// SettingsResolver reads and updates per-user delivery settings, provisioning
// defaults on first access.
type SettingsResolver struct {
	store SettingsStorage
	users UserDirectory
	now   func() time.Time
}

// NewSettingsResolver creates a resolver. A nil now defaults to time.Now.
func NewSettingsResolver(store SettingsStorage, users UserDirectory, now func() time.Time) *SettingsResolver {
	if now == nil {
		now = time.Now
	}
	return &SettingsResolver{store: store, users: users, now: now}
}

// Get returns the user's settings, creating the default row when absent.
func (r *SettingsResolver) Get(ctx context.Context, userID int64) (Settings, error) {
	if err := ensureUser(ctx, r.users, userID); err != nil {
		return Settings{}, err
	}
	return r.get(ctx, userID)
}

func (r *SettingsResolver) get(ctx context.Context, userID int64) (Settings, error) {
	st, err := r.store.GetOrCreate(ctx, DefaultSettings(userID, r.now()))
	if err != nil {
		return Settings{}, fmt.Errorf("resolve settings: %w", err)
	}
	return st, nil
}

// Update merges patch into the user's settings and returns the result.
// An empty patch returns the current settings unchanged.
func (r *SettingsResolver) Update(ctx context.Context, userID int64, patch SettingsPatch) (Settings, error) {
	if err := patch.Validate(); err != nil {
		return Settings{}, err
	}
	current, err := r.Get(ctx, userID)
	if err != nil {
		return Settings{}, err
	}
	if patch.Empty() {
		return current, nil
	}
	st, err := r.store.Update(ctx, userID, patch, r.now())
	if err != nil {
		return Settings{}, fmt.Errorf("update settings: %w", err)
	}
	return st, nil
}

func ensureUser(ctx context.Context, users UserDirectory, userID int64) error {
	if userID <= 0 {
		return ErrUserNotFound
	}
	ok, err := users.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}
