package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/sbel2/citale-api/internal/models"
)

// EngagementRepository persists comments, post likes and comment likes, the
// three event sources the notification feed is built from.
type EngagementRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	ListCommentsByPost(ctx context.Context, postID uint) ([]models.Comment, error)
	ListCommentsByPostIDs(ctx context.Context, postIDs []uint) ([]models.Comment, error)
	ListCommentsByUser(ctx context.Context, userID string) ([]models.Comment, error)
	FindCommentsByIDs(ctx context.Context, ids []uint) (map[uint]models.Comment, error)

	CreateLike(ctx context.Context, like *models.Like) error
	DeleteLike(ctx context.Context, postID uint, userID string) error
	ListLikesByPostIDs(ctx context.Context, postIDs []uint) ([]models.Like, error)

	CreateCommentLike(ctx context.Context, like *models.CommentLike) error
	DeleteCommentLike(ctx context.Context, commentID uint, userID string) error
	ListCommentLikesByCommentIDs(ctx context.Context, commentIDs []uint) ([]models.CommentLike, error)
}

type engagementRepository struct {
	db *gorm.DB
}

// NewEngagementRepository constructs an engagement repository backed by GORM.
func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

func (r *engagementRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *engagementRepository) ListCommentsByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("comment_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *engagementRepository) ListCommentsByPostIDs(ctx context.Context, postIDs []uint) ([]models.Comment, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}

	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("comment_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *engagementRepository) ListCommentsByUser(ctx context.Context, userID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *engagementRepository) FindCommentsByIDs(ctx context.Context, ids []uint) (map[uint]models.Comment, error) {
	result := make(map[uint]models.Comment, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var comments []models.Comment
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&comments).Error; err != nil {
		return nil, err
	}

	for _, comment := range comments {
		result[comment.ID] = comment
	}

	return result, nil
}

func (r *engagementRepository) CreateLike(ctx context.Context, like *models.Like) error {
	return r.db.WithContext(ctx).Create(like).Error
}

func (r *engagementRepository) DeleteLike(ctx context.Context, postID uint, userID string) error {
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Like{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("like not found")
	}
	return nil
}

func (r *engagementRepository) ListLikesByPostIDs(ctx context.Context, postIDs []uint) ([]models.Like, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}

	var likes []models.Like
	err := r.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("liked_at DESC").
		Find(&likes).Error
	if err != nil {
		return nil, err
	}
	return likes, nil
}

func (r *engagementRepository) CreateCommentLike(ctx context.Context, like *models.CommentLike) error {
	return r.db.WithContext(ctx).Create(like).Error
}

func (r *engagementRepository) DeleteCommentLike(ctx context.Context, commentID uint, userID string) error {
	res := r.db.WithContext(ctx).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Delete(&models.CommentLike{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("comment like not found")
	}
	return nil
}

func (r *engagementRepository) ListCommentLikesByCommentIDs(ctx context.Context, commentIDs []uint) ([]models.CommentLike, error) {
	if len(commentIDs) == 0 {
		return nil, nil
	}

	var likes []models.CommentLike
	err := r.db.WithContext(ctx).
		Where("comment_id IN ?", commentIDs).
		Order("liked_at DESC").
		Find(&likes).Error
	if err != nil {
		return nil, err
	}
	return likes, nil
}
