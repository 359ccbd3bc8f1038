package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sbel2/citale-api/internal/dto"
	"github.com/sbel2/citale-api/internal/service"
	"github.com/sbel2/citale-api/internal/utils"
)

// ChatHandler wires the inbox, thread and websocket endpoints.
type ChatHandler struct {
	conversations service.ConversationService
	threads       service.ThreadService
	validator     *validator.Validate
	logger        zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(conversations service.ConversationService, threads service.ThreadService, validate *validator.Validate, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		conversations: conversations,
		threads:       threads,
		validator:     validate,
		logger:        logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Get("/conversations", h.listConversations)
	router.Get("/thread/:partnerID", h.thread)
	router.Post("/thread/:partnerID", h.send)
	router.Post("/thread/:partnerID/read", h.markRead)

	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *ChatHandler) listConversations(c *fiber.Ctx) error {
	viewerID := userIDStringFromContext(c)
	if viewerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	conversations, err := h.conversations.ListConversations(requestContext(c), viewerID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list conversations")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list conversations")
	}

	return utils.SendSuccess(c, "conversations", conversations)
}

func (h *ChatHandler) thread(c *fiber.Ctx) error {
	viewerID := userIDStringFromContext(c)
	if viewerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	partnerID, err := threadPartner(c, viewerID)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	messages, err := h.threads.Messages(requestContext(c), viewerID, partnerID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Str("partner_id", partnerID).Msg("failed to fetch thread")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch thread")
	}

	return utils.SendSuccess(c, "thread messages", messages)
}

func (h *ChatHandler) send(c *fiber.Ctx) error {
	viewerID := userIDStringFromContext(c)
	if viewerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	partnerID, err := threadPartner(c, viewerID)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.MessageSendRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	message, err := h.threads.Send(requestContext(c), viewerID, partnerID, req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) || isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Str("partner_id", partnerID).Msg("failed to send message")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to send message")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *ChatHandler) markRead(c *fiber.Ctx) error {
	viewerID := userIDStringFromContext(c)
	if viewerID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	partnerID, err := threadPartner(c, viewerID)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.threads.MarkRead(requestContext(c), viewerID, partnerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "thread not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Str("partner_id", partnerID).Msg("failed to mark thread read")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to mark thread read")
	}

	return utils.SendSuccess(c, "thread marked read", nil)
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	viewerID := websocketUserID(conn)
	if viewerID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	partnerID := strings.TrimSpace(conn.Query("partner_id"))
	if partnerID == "" || partnerID == viewerID {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "partner_id required"))
		_ = conn.Close()
		return
	}

	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	session, err := h.threads.OpenSession(baseCtx, viewerID, partnerID)
	if err != nil {
		h.logger.Error().Err(err).Str("partner_id", partnerID).Msg("failed to open thread session")
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusInternalServerError, "failed to open thread"))
		_ = conn.Close()
		return
	}
	defer session.Close()

	h.logger.Info().Str("viewer_id", viewerID).Str("partner_id", partnerID).Msg("thread websocket connected")
	defer h.logger.Info().Str("viewer_id", viewerID).Str("partner_id", partnerID).Msg("thread websocket disconnected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case view := <-session.Updates():
				if err := conn.WriteJSON(view); err != nil {
					return
				}
			case <-session.Done():
				return
			}
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var req dto.MessageSendRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			_ = conn.WriteJSON(fiber.Map{"error": "invalid message payload"})
			continue
		}
		if err := h.validator.Struct(req); err != nil {
			_ = conn.WriteJSON(fiber.Map{"error": err.Error()})
			continue
		}

		if _, err := session.Send(baseCtx, req); err != nil {
			if errors.Is(err, service.ErrEmptyMessage) {
				_ = conn.WriteJSON(fiber.Map{"error": err.Error()})
				continue
			}
			h.logger.Warn().Err(err).Str("partner_id", partnerID).Msg("websocket send failed")
			_ = conn.WriteJSON(fiber.Map{"error": "failed to send message"})
		}
	}

	session.Close()
	<-done
	_ = conn.Close()
}

func threadPartner(c *fiber.Ctx, viewerID string) (string, error) {
	partnerID := strings.TrimSpace(c.Params("partnerID"))
	if partnerID == "" {
		return "", errors.New("partner id required")
	}
	if partnerID == viewerID {
		return "", errors.New("cannot open a thread with yourself")
	}
	return partnerID, nil
}

func websocketUserID(conn *websocket.Conn) string {
	if value := conn.Locals("user_id"); value != nil {
		if id, ok := value.(string); ok {
			return strings.TrimSpace(id)
		}
	}
	return ""
}
