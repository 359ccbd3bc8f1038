package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sbel2/citale-api/internal/dto"
	"github.com/sbel2/citale-api/internal/service"
	"github.com/sbel2/citale-api/internal/utils"
)

// PostHandler serves the discovery feed.
type PostHandler struct {
	service service.PostService
	logger  zerolog.Logger
}

// NewPostHandler constructs a post handler.
func NewPostHandler(posts service.PostService, logger zerolog.Logger) *PostHandler {
	return &PostHandler{
		service: posts,
		logger:  logger.With().Str("component", "post_handler").Logger(),
	}
}

// Register binds the post feed routes.
func (h *PostHandler) Register(router fiber.Router) {
	router.Get("/", h.feed)
	router.Get("/:id", h.get)
}

func (h *PostHandler) feed(c *fiber.Ctx) error {
	query := dto.PostQuery{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Location: c.Query("location"),
		Price:    c.Query("price"),
		Season:   c.Query("season"),
	}

	for _, bound := range []struct {
		key    string
		target **time.Time
	}{
		{"from", &query.From},
		{"to", &query.To},
	} {
		if raw := c.Query(bound.key); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return utils.SendError(c, fiber.StatusBadRequest, "invalid "+bound.key+" timestamp")
			}
			*bound.target = &parsed
		}
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}
	query.Page = page
	query.PageSize = pageSize

	feed, err := h.service.Feed(requestContext(c), query)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list posts")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list posts")
	}

	return utils.SendSuccess(c, "posts", feed)
}

func (h *PostHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid post id")
	}

	post, err := h.service.Get(requestContext(c), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "post not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("post_id", id).Msg("failed to fetch post")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch post")
	}

	return utils.SendSuccess(c, "post", post)
}
