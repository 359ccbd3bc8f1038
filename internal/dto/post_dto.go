package dto

import (
	"encoding/json"
	"time"

	"github.com/sbel2/citale-api/internal/models"
)

// PostQuery carries feed search and filter parameters.
type PostQuery struct {
	Search   string     `query:"search" validate:"omitempty,max=128"`
	Category string     `query:"category" validate:"omitempty,max=64"`
	Location string     `query:"location" validate:"omitempty,max=128"`
	Price    string     `query:"price" validate:"omitempty,max=32"`
	Season   string     `query:"season" validate:"omitempty,max=32"`
	From     *time.Time `query:"from"`
	To       *time.Time `query:"to"`
	Page     int        `query:"page" validate:"omitempty,min=1"`
	PageSize int        `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// PostResponse is the serialized feed entry.
type PostResponse struct {
	PostID        uint       `json:"post_id"`
	UserID        string     `json:"user_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	MediaURLs     []string   `json:"media_urls"`
	IsVideo       bool       `json:"is_video"`
	LikeCount     int        `json:"like_count"`
	FavoriteCount int        `json:"favorite_count"`
	Category      string     `json:"category"`
	Location      string     `json:"location"`
	Price         string     `json:"price"`
	Season        string     `json:"season"`
	MapURL        string     `json:"map_url,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewPostResponse converts a model into a DTO.
func NewPostResponse(post models.Post) PostResponse {
	var media []string
	if len(post.MediaURLs) > 0 {
		// Malformed media payloads degrade to an empty list rather than failing the feed.
		_ = json.Unmarshal(post.MediaURLs, &media)
	}

	return PostResponse{
		PostID:        post.PostID,
		UserID:        post.UserID,
		Title:         post.Title,
		Description:   post.Description,
		MediaURLs:     media,
		IsVideo:       post.IsVideo,
		LikeCount:     post.LikeCount,
		FavoriteCount: post.FavoriteCount,
		Category:      post.Category,
		Location:      post.Location,
		Price:         post.Price,
		Season:        post.Season,
		MapURL:        post.MapURL,
		StartDate:     post.StartDate,
		EndDate:       post.EndDate,
		CreatedAt:     post.CreatedAt,
	}
}

// NewPostResponseSlice converts a slice of models into DTOs.
func NewPostResponseSlice(posts []models.Post) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		out = append(out, NewPostResponse(post))
	}
	return out
}

// PaginationMeta describes the shape of a paginated listing.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// PostFeedResponse wraps a page of posts.
type PostFeedResponse struct {
	Items      []PostResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// CommentCreateRequest is the payload to comment on a post.
type CommentCreateRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// CommentResponse is the serialized representation of a comment.
type CommentResponse struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"post_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CommentAt time.Time `json:"comment_at"`
}

// NewCommentResponse converts a model into a DTO.
func NewCommentResponse(comment models.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		PostID:    comment.PostID,
		UserID:    comment.UserID,
		Content:   comment.Content,
		CommentAt: comment.CommentAt,
	}
}

// NewCommentResponseSlice converts a slice of models into DTOs.
func NewCommentResponseSlice(comments []models.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, NewCommentResponse(comment))
	}
	return out
}
