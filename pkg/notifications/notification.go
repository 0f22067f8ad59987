package notifications

import (
	"math"
	"time"
)

// Kind is the notification type tag.
type Kind string

const (
	KindThreadReply Kind = "thread_reply"
	KindPostReply   Kind = "post_reply"
	KindMention     Kind = "mention"
	KindPostLiked   Kind = "post_liked"
	KindFollow      Kind = "follow"
	KindSystem      Kind = "system"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindThreadReply, KindPostReply, KindMention, KindPostLiked, KindFollow, KindSystem}

// MaxTitleLength is the maximum title length in characters.
const MaxTitleLength = 200

// Notification is a persisted event delivered to one recipient.
// ReadAt is set if and only if IsRead is true.
type Notification struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	ActorID     *int64     `json:"actorId"`
	Kind        Kind       `json:"type"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	RelatedType string     `json:"relatedType"`
	RelatedID   *int64     `json:"relatedId"`
	IsRead      bool       `json:"isRead"`
	ReadAt      *time.Time `json:"readAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Candidate is a notification that has not passed the delivery policy yet.
type Candidate struct {
	RecipientID int64
	ActorID     *int64
	Kind        Kind
	Title       string
	Content     string
	RelatedType string
	RelatedID   *int64
}

// SystemNotification is the payload of an administrator broadcast to one user.
type SystemNotification struct {
	RecipientID int64
	Title       string
	Content     string
	RelatedType string
	RelatedID   *int64
}

// Candidate converts s into a system candidate without an actor.
func (s SystemNotification) Candidate() Candidate {
	return Candidate{
		RecipientID: s.RecipientID,
		Kind:        KindSystem,
		Title:       s.Title,
		Content:     s.Content,
		RelatedType: s.RelatedType,
		RelatedID:   s.RelatedID,
	}
}

// Actor is the public profile of the user who caused a notification.
type Actor struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Item is a notification enriched with its actor profile for listing.
type Item struct {
	Notification
	Actor *Actor `json:"actor,omitempty"`
}

// Pagination bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListParams selects a page of a user's notifications.
type ListParams struct {
	Page       int
	PageSize   int
	UnreadOnly bool
}

// Normalize clamps page to >= 1 and pageSize to [1, MaxPageSize].
// A zero page size becomes DefaultPageSize.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.PageSize == 0:
		p.PageSize = DefaultPageSize
	case p.PageSize < 1:
		p.PageSize = 1
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset is the number of rows skipped before the page. It saturates at
// math.MaxInt so a huge page number yields an empty page instead of
// wrapping negative. Call it on normalized params.
func (p ListParams) Offset() int {
	if p.Page <= 1 || p.PageSize <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// Page is one page of notifications, newest first.
type Page struct {
	Items      []Item `json:"items"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
}

func totalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
