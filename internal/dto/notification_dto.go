package dto

import "time"

// NotificationKind discriminates the engagement event variants merged into the
// notification feed.
type NotificationKind string

const (
	NotificationKindComment     NotificationKind = "comment"
	NotificationKindLike        NotificationKind = "like"
	NotificationKindCommentLike NotificationKind = "comment_like"
)

// Valid reports whether the kind names a known variant.
func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationKindComment, NotificationKindLike, NotificationKindCommentLike:
		return true
	}
	return false
}

// Fallback labels rendered when a notification's target has been deleted.
const (
	DeletedPostLabel    = "a deleted post"
	DeletedCommentLabel = "a deleted comment"
)

// NotificationRef identifies a single notification. Source ids are only
// unique within their own table, so the kind is part of the identity.
type NotificationRef struct {
	Kind NotificationKind `json:"kind"`
	ID   uint             `json:"id"`
}

// NotificationResponse is one entry of the merged engagement feed.
// OccurredAt normalizes comment_at/liked_at so the feed sorts on one field.
type NotificationResponse struct {
	Kind           NotificationKind `json:"kind"`
	ID             uint             `json:"id"`
	ActorID        string           `json:"actor_id"`
	ActorUsername  string           `json:"actor_username"`
	ActorAvatarURL string           `json:"actor_avatar_url"`
	PostID         uint             `json:"post_id,omitempty"`
	PostTitle      string           `json:"post_title"`
	CommentID      uint             `json:"comment_id,omitempty"`
	CommentContent string           `json:"comment_content,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
	Read           bool             `json:"read"`
}

// Ref returns the composite identity of the notification.
func (n NotificationResponse) Ref() NotificationRef {
	return NotificationRef{Kind: n.Kind, ID: n.ID}
}

// BadgeResponse carries the toolbar indicator state.
type BadgeResponse struct {
	UnreadMessages      bool `json:"unread_messages"`
	UnreadNotifications bool `json:"unread_notifications"`
}
