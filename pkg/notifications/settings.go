package notifications

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/forumnotify/pkg/validator"
)

// Default quiet-hours window, server local time.
const (
	DefaultQuietHoursStart = 23
	DefaultQuietHoursEnd   = 8
)

// Settings is the per-user delivery policy.
type Settings struct {
	UserID             int64     `json:"-"`
	ThreadReplyEnabled bool      `json:"threadReplyEnabled"`
	PostReplyEnabled   bool      `json:"postReplyEnabled"`
	MentionEnabled     bool      `json:"mentionEnabled"`
	PostLikedEnabled   bool      `json:"postLikedEnabled"`
	FollowEnabled      bool      `json:"followEnabled"`
	SystemEnabled      bool      `json:"systemEnabled"`
	QuietHoursEnabled  bool      `json:"quietHoursEnabled"`
	QuietHoursStart    int       `json:"quietHoursStart"`
	QuietHoursEnd      int       `json:"quietHoursEnd"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// DefaultSettings returns the settings provisioned for a user on first access:
// every kind enabled, quiet hours off with a 23:00-08:00 window.
func DefaultSettings(userID int64, now time.Time) Settings {
	return Settings{
		UserID:             userID,
		ThreadReplyEnabled: true,
		PostReplyEnabled:   true,
		MentionEnabled:     true,
		PostLikedEnabled:   true,
		FollowEnabled:      true,
		SystemEnabled:      true,
		QuietHoursStart:    DefaultQuietHoursStart,
		QuietHoursEnd:      DefaultQuietHoursEnd,
		UpdatedAt:          now,
	}
}

// Enabled reports whether notifications of kind k are switched on.
// Unknown kinds are never enabled.
func (s Settings) Enabled(k Kind) bool {
	switch k {
	case KindThreadReply:
		return s.ThreadReplyEnabled
	case KindPostReply:
		return s.PostReplyEnabled
	case KindMention:
		return s.MentionEnabled
	case KindPostLiked:
		return s.PostLikedEnabled
	case KindFollow:
		return s.FollowEnabled
	case KindSystem:
		return s.SystemEnabled
	}
	return false
}

// SettingsPatch is a partial update. Nil fields are left unchanged.
type SettingsPatch struct {
	ThreadReplyEnabled *bool
	PostReplyEnabled   *bool
	MentionEnabled     *bool
	PostLikedEnabled   *bool
	FollowEnabled      *bool
	SystemEnabled      *bool
	QuietHoursEnabled  *bool
	QuietHoursStart    *int
	QuietHoursEnd      *int
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p == SettingsPatch{}
}

// Validate checks hour ranges. The error wraps ErrInvalidArgument and
// validator.ValidationErrors.
func (p SettingsPatch) Validate() error {
	err := validator.Apply(
		validator.When(p.QuietHoursStart != nil, validator.Between("quietHoursStart", deref(p.QuietHoursStart), 0, 23)),
		validator.When(p.QuietHoursEnd != nil, validator.Between("quietHoursEnd", deref(p.QuietHoursEnd), 0, 23)),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return nil
}

// Apply merges the non-nil fields of p into s.
func (p SettingsPatch) Apply(s Settings) Settings {
	set(&s.ThreadReplyEnabled, p.ThreadReplyEnabled)
	set(&s.PostReplyEnabled, p.PostReplyEnabled)
	set(&s.MentionEnabled, p.MentionEnabled)
	set(&s.PostLikedEnabled, p.PostLikedEnabled)
	set(&s.FollowEnabled, p.FollowEnabled)
	set(&s.SystemEnabled, p.SystemEnabled)
	set(&s.QuietHoursEnabled, p.QuietHoursEnabled)
	set(&s.QuietHoursStart, p.QuietHoursStart)
	set(&s.QuietHoursEnd, p.QuietHoursEnd)
	return s
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}
