package notifications

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/dmitrymomot/forumnotify/pkg/notifications"
)

var errNullField = errors.New("null is not a valid value")

// ListRequest selects a page of notifications.
type ListRequest struct {
	Page       int  `query:"page"`
	PageSize   int  `query:"pageSize"`
	UnreadOnly bool `query:"unreadOnly"`
}

func (r ListRequest) params() notifications.ListParams {
	return notifications.ListParams{
		Page:       r.Page,
		PageSize:   r.PageSize,
		UnreadOnly: r.UnreadOnly,
	}
}

// MarkReadRequest identifies a notification by its path id.
type MarkReadRequest struct {
	ID int64 `path:"id"`
}

// optional tracks whether a JSON field was present. An explicit null is
// rejected so a client cannot clear a setting by accident.
type optional[T any] struct {
	set   bool
	value T
}

func (o *optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errNullField
	}
	if err := json.Unmarshal(data, &o.value); err != nil {
		return err
	}
	o.set = true
	return nil
}

func (o optional[T]) ptr() *T {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// UpdateSettingsRequest is a partial settings update. Absent fields keep
// their stored value; unknown fields fail binding.
type UpdateSettingsRequest struct {
	ThreadReplyEnabled optional[bool] `json:"threadReplyEnabled"`
	PostReplyEnabled   optional[bool] `json:"postReplyEnabled"`
	MentionEnabled     optional[bool] `json:"mentionEnabled"`
	PostLikedEnabled   optional[bool] `json:"postLikedEnabled"`
	FollowEnabled      optional[bool] `json:"followEnabled"`
	SystemEnabled      optional[bool] `json:"systemEnabled"`
	QuietHoursEnabled  optional[bool] `json:"quietHoursEnabled"`
	QuietHoursStart    optional[int]  `json:"quietHoursStart"`
	QuietHoursEnd      optional[int]  `json:"quietHoursEnd"`
}

func (r UpdateSettingsRequest) patch() notifications.SettingsPatch {
	return notifications.SettingsPatch{
		ThreadReplyEnabled: r.ThreadReplyEnabled.ptr(),
		PostReplyEnabled:   r.PostReplyEnabled.ptr(),
		MentionEnabled:     r.MentionEnabled.ptr(),
		PostLikedEnabled:   r.PostLikedEnabled.ptr(),
		FollowEnabled:      r.FollowEnabled.ptr(),
		SystemEnabled:      r.SystemEnabled.ptr(),
		QuietHoursEnabled:  r.QuietHoursEnabled.ptr(),
		QuietHoursStart:    r.QuietHoursStart.ptr(),
		QuietHoursEnd:      r.QuietHoursEnd.ptr(),
	}
}

// SystemRequest is an administrator notification addressed to one user.
type SystemRequest struct {
	UserID      int64  `json:"userId"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	RelatedType string `json:"relatedType"`
	RelatedID   *int64 `json:"relatedId"`
}

func (r SystemRequest) notification() notifications.SystemNotification {
	return notifications.SystemNotification{
		RecipientID: r.UserID,
		Title:       r.Title,
		Content:     r.Content,
		RelatedType: r.RelatedType,
		RelatedID:   r.RelatedID,
	}
}
