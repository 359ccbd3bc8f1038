package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/sbel2/citale-api/internal/dto"
	"github.com/sbel2/citale-api/internal/models"
	"github.com/sbel2/citale-api/internal/repository"
)

// ErrEmptyComment indicates the comment content was empty after sanitization.
var ErrEmptyComment = errors.New("comment content empty after sanitization")

// EngagementService creates the engagement events (comments, likes, comment
// likes) that feed the notification aggregator.
type EngagementService interface {
	CommentOnPost(ctx context.Context, userID string, postID uint, req dto.CommentCreateRequest) (dto.CommentResponse, error)
	ListComments(ctx context.Context, postID uint) ([]dto.CommentResponse, error)
	LikePost(ctx context.Context, userID string, postID uint) error
	UnlikePost(ctx context.Context, userID string, postID uint) error
	LikeComment(ctx context.Context, userID string, commentID uint) error
	UnlikeComment(ctx context.Context, userID string, commentID uint) error
}

type engagementService struct {
	engagement repository.EngagementRepository
	posts      repository.PostRepository
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
}

// NewEngagementService constructs the engagement service.
func NewEngagementService(engagement repository.EngagementRepository, posts repository.PostRepository, validate *validator.Validate, logger zerolog.Logger) EngagementService {
	return &engagementService{
		engagement: engagement,
		posts:      posts,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "engagement_service").Logger(),
	}
}

func (s *engagementService) CommentOnPost(ctx context.Context, userID string, postID uint, req dto.CommentCreateRequest) (dto.CommentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CommentResponse{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(req.Content))
	if clean == "" {
		return dto.CommentResponse{}, ErrEmptyComment
	}

	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return dto.CommentResponse{}, err
	}

	comment := models.Comment{
		PostID:    postID,
		UserID:    userID,
		Content:   clean,
		CommentAt: time.Now().UTC(),
	}

	if err := s.engagement.CreateComment(ctx, &comment); err != nil {
		return dto.CommentResponse{}, err
	}

	return dto.NewCommentResponse(comment), nil
}

func (s *engagementService) ListComments(ctx context.Context, postID uint) ([]dto.CommentResponse, error) {
	comments, err := s.engagement.ListCommentsByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return dto.NewCommentResponseSlice(comments), nil
}

func (s *engagementService) LikePost(ctx context.Context, userID string, postID uint) error {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return err
	}

	like := models.Like{
		PostID:  postID,
		UserID:  userID,
		LikedAt: time.Now().UTC(),
	}

	if err := s.engagement.CreateLike(ctx, &like); err != nil {
		return err
	}

	if err := s.posts.AddLikeCount(ctx, postID, 1); err != nil {
		// The like row is the source of truth; the counter is display-only.
		s.logger.Warn().Err(err).Uint("post_id", postID).Msg("failed to bump like count")
	}

	return nil
}

func (s *engagementService) UnlikePost(ctx context.Context, userID string, postID uint) error {
	if err := s.engagement.DeleteLike(ctx, postID, userID); err != nil {
		return err
	}

	if err := s.posts.AddLikeCount(ctx, postID, -1); err != nil {
		s.logger.Warn().Err(err).Uint("post_id", postID).Msg("failed to drop like count")
	}

	return nil
}

func (s *engagementService) LikeComment(ctx context.Context, userID string, commentID uint) error {
	like := models.CommentLike{
		CommentID: commentID,
		UserID:    userID,
		LikedAt:   time.Now().UTC(),
	}
	return s.engagement.CreateCommentLike(ctx, &like)
}

func (s *engagementService) UnlikeComment(ctx context.Context, userID string, commentID uint) error {
	return s.engagement.DeleteCommentLike(ctx, commentID, userID)
}
