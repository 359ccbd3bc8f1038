package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sbel2/citale-api/internal/dto"
	"github.com/sbel2/citale-api/internal/service"
	"github.com/sbel2/citale-api/internal/utils"
)

// AssistantHandler serves the Talebot conversation endpoint.
type AssistantHandler struct {
	service   service.AssistantService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAssistantHandler constructs an assistant handler.
func NewAssistantHandler(assistant service.AssistantService, validate *validator.Validate, logger zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{
		service:   assistant,
		validator: validate,
		logger:    logger.With().Str("component", "assistant_handler").Logger(),
	}
}

// Register wires the Talebot route.
func (h *AssistantHandler) Register(router fiber.Router) {
	router.Post("/talebot", h.reply)
}

func (h *AssistantHandler) reply(c *fiber.Ctx) error {
	viewerID := userIDStringFromContext(c)
	if viewerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var req dto.TalebotRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	reply, err := h.service.Reply(requestContext(c), viewerID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAssistantUnavailable):
			return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("assistant reply failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "assistant reply failed")
		}
	}

	return utils.SendSuccess(c, "talebot reply", reply)
}
