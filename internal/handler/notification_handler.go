package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sbel2/citale-api/internal/dto"
	"github.com/sbel2/citale-api/internal/service"
	"github.com/sbel2/citale-api/internal/utils"
)

// NotificationHandler serves the merged engagement feed and its read state.
type NotificationHandler struct {
	service service.NotificationService
	badges  service.BadgeService
	logger  zerolog.Logger
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(notifications service.NotificationService, badges service.BadgeService, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: notifications,
		badges:  badges,
		logger:  logger.With().Str("component", "notification_handler").Logger(),
	}
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("/", h.feed)
	router.Post("/read-all", h.markAllRead)
	router.Post("/unread-all", h.markAllUnread)
	router.Post("/:kind/:id/read", h.markRead)
	router.Post("/:kind/:id/unread", h.markUnread)
}

// RegisterBadges binds the toolbar badge route on its own group.
func (h *NotificationHandler) RegisterBadges(router fiber.Router) {
	router.Get("/badges", h.badgeCounts)
}

func (h *NotificationHandler) feed(c *fiber.Ctx) error {
	viewerID := userIDStringFromContext(c)
	if viewerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	notifications, err := h.service.Feed(requestContext(c), viewerID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build notification feed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to build notification feed")
	}

	return utils.SendSuccess(c, "notifications", notifications)
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	return h.setRead(c, true)
}

func (h *NotificationHandler) markUnread(c *fiber.Ctx) error {
	return h.setRead(c, false)
}

func (h *NotificationHandler) setRead(c *fiber.Ctx, read bool) error {
	viewerID := userIDStringFromContext(c)
	if viewerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	ref, err := notificationRefFromParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ctx := requestContext(c)
	if read {
		err = h.service.MarkRead(ctx, viewerID, ref)
	} else {
		err = h.service.MarkUnread(ctx, viewerID, ref)
	}
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).
			Str("kind", string(ref.Kind)).Uint("id", uint(ref.ID)).
			Msg("failed to update notification read state")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to update notification")
	}

	h.badges.Invalidate(ctx, viewerID)

	if read {
		return utils.SendSuccess(c, "notification marked read", nil)
	}
	return utils.SendSuccess(c, "notification marked unread", nil)
}

func (h *NotificationHandler) markAllRead(c *fiber.Ctx) error {
	viewerID := userIDStringFromContext(c)
	if viewerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	ctx := requestContext(c)
	if err := h.service.MarkAllRead(ctx, viewerID); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to mark all notifications read")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to mark all notifications read")
	}
	h.badges.Invalidate(ctx, viewerID)

	return utils.SendSuccess(c, "all notifications marked read", nil)
}

func (h *NotificationHandler) markAllUnread(c *fiber.Ctx) error {
	viewerID := userIDStringFromContext(c)
	if viewerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	ctx := requestContext(c)
	if err := h.service.MarkAllUnread(ctx, viewerID); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to mark all notifications unread")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to mark all notifications unread")
	}
	h.badges.Invalidate(ctx, viewerID)

	return utils.SendSuccess(c, "all notifications marked unread", nil)
}

func (h *NotificationHandler) badgeCounts(c *fiber.Ctx) error {
	viewerID := userIDStringFromContext(c)
	if viewerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	badges, err := h.badges.Badges(requestContext(c), viewerID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to compute badges")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to compute badges")
	}

	return utils.SendSuccess(c, "badges", badges)
}

func notificationRefFromParams(c *fiber.Ctx) (dto.NotificationRef, error) {
	kind := dto.NotificationKind(strings.TrimSpace(c.Params("kind")))
	if !kind.Valid() {
		return dto.NotificationRef{}, fiber.NewError(fiber.StatusBadRequest, "invalid notification kind")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return dto.NotificationRef{}, fiber.NewError(fiber.StatusBadRequest, "invalid notification id")
	}

	return dto.NotificationRef{Kind: kind, ID: id}, nil
}
