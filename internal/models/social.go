package models

import (
	"time"

	"gorm.io/datatypes"
)

// Profile holds the public-facing identity of a user.
type Profile struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Username       string    `gorm:"size:64;uniqueIndex" json:"username"`
	FullName       string    `gorm:"size:128" json:"full_name"`
	Bio            string    `gorm:"type:text" json:"bio"`
	AvatarURL      string    `gorm:"size:255" json:"avatar_url"`
	AvatarURLSmall string    `gorm:"size:255" json:"avatar_url_small"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Post is a published event post shown in the discovery feed.
type Post struct {
	PostID        uint           `gorm:"primaryKey" json:"post_id"`
	UserID        string         `gorm:"size:64;index" json:"user_id"`
	Title         string         `gorm:"size:255;not null" json:"title"`
	Description   string         `gorm:"type:text" json:"description"`
	MediaURLs     datatypes.JSON `gorm:"type:json" json:"media_urls"`
	IsVideo       bool           `gorm:"not null;default:false" json:"is_video"`
	LikeCount     int            `gorm:"not null;default:0" json:"like_count"`
	FavoriteCount int            `gorm:"not null;default:0" json:"favorite_count"`
	Category      string         `gorm:"size:64;index" json:"category"`
	Location      string         `gorm:"size:128;index" json:"location"`
	Price         string         `gorm:"size:32" json:"price"`
	Season        string         `gorm:"size:32" json:"season"`
	MapURL        string         `gorm:"size:512" json:"map_url"`
	PostAction    string         `gorm:"size:32" json:"post_action"`
	StartDate     *time.Time     `json:"start_date"`
	EndDate       *time.Time     `json:"end_date"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Comment is a user comment on a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	UserID    string    `gorm:"size:64;index" json:"user_id"`
	Content   string    `gorm:"type:text" json:"content"`
	CommentAt time.Time `gorm:"index;not null" json:"comment_at"`
}

// Like records a user liking a post. A user may like a post at most once.
type Like struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	PostID  uint      `gorm:"index;uniqueIndex:idx_post_user_like" json:"post_id"`
	UserID  string    `gorm:"size:64;uniqueIndex:idx_post_user_like" json:"user_id"`
	LikedAt time.Time `gorm:"index;not null" json:"liked_at"`
}

// CommentLike records a user liking a comment.
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"index;uniqueIndex:idx_comment_user_like" json:"comment_id"`
	UserID    string    `gorm:"size:64;uniqueIndex:idx_comment_user_like" json:"user_id"`
	LikedAt   time.Time `gorm:"index;not null" json:"liked_at"`
}
