package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sbel2/citale-api/internal/dto"
	"github.com/sbel2/citale-api/internal/service"
	"github.com/sbel2/citale-api/internal/utils"
)

// EngagementHandler serves comments and likes.
type EngagementHandler struct {
	service   service.EngagementService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEngagementHandler constructs an engagement handler.
func NewEngagementHandler(engagement service.EngagementService, validate *validator.Validate, logger zerolog.Logger) *EngagementHandler {
	return &EngagementHandler{
		service:   engagement,
		validator: validate,
		logger:    logger.With().Str("component", "engagement_handler").Logger(),
	}
}

// RegisterPostRoutes binds comment and like routes under the posts group.
func (h *EngagementHandler) RegisterPostRoutes(router fiber.Router) {
	router.Get("/:id/comments", h.listComments)
	router.Post("/:id/comments", h.createComment)
	router.Post("/:id/like", h.likePost)
	router.Delete("/:id/like", h.unlikePost)
}

// RegisterCommentRoutes binds comment-like routes under the comments group.
func (h *EngagementHandler) RegisterCommentRoutes(router fiber.Router) {
	router.Post("/:id/like", h.likeComment)
	router.Delete("/:id/like", h.unlikeComment)
}

func (h *EngagementHandler) listComments(c *fiber.Ctx) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid post id")
	}

	comments, err := h.service.ListComments(requestContext(c), postID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Uint("post_id", postID).Msg("failed to list comments")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list comments")
	}

	return utils.SendSuccess(c, "comments", comments)
}

func (h *EngagementHandler) createComment(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	postID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid post id")
	}

	var req dto.CommentCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	comment, err := h.service.CommentOnPost(requestContext(c), userID, postID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyComment), isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, gorm.ErrRecordNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "post not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("post_id", postID).Msg("failed to create comment")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to create comment")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "comment created", comment)
}

func (h *EngagementHandler) likePost(c *fiber.Ctx) error {
	return h.toggle(c, "post", func(ctx *fiber.Ctx, userID string, id uint) error {
		return h.service.LikePost(requestContext(ctx), userID, id)
	})
}

func (h *EngagementHandler) unlikePost(c *fiber.Ctx) error {
	return h.toggle(c, "post", func(ctx *fiber.Ctx, userID string, id uint) error {
		return h.service.UnlikePost(requestContext(ctx), userID, id)
	})
}

func (h *EngagementHandler) likeComment(c *fiber.Ctx) error {
	return h.toggle(c, "comment", func(ctx *fiber.Ctx, userID string, id uint) error {
		return h.service.LikeComment(requestContext(ctx), userID, id)
	})
}

func (h *EngagementHandler) unlikeComment(c *fiber.Ctx) error {
	return h.toggle(c, "comment", func(ctx *fiber.Ctx, userID string, id uint) error {
		return h.service.UnlikeComment(requestContext(ctx), userID, id)
	})
}

func (h *EngagementHandler) toggle(c *fiber.Ctx, target string, apply func(*fiber.Ctx, string, uint) error) error {
	userID := userIDStringFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid "+target+" id")
	}

	if err := apply(c, userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, target+" not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint(target+"_id", id).Msg("failed to update like")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to update like")
	}

	return utils.SendSuccess(c, "like updated", nil)
}
