package dto

import (
	"time"

	"github.com/sbel2/citale-api/internal/models"
)

// MessageSendRequest is the payload to send a direct message to a partner.
// CorrelationID is generated by the client so an optimistic local entry can be
// matched against the server-confirmed row.
type MessageSendRequest struct {
	Content       string `json:"content" validate:"required,min=1,max=4000"`
	CorrelationID string `json:"correlation_id" validate:"omitempty,uuid4"`
}

// MessageResponse is the serialized representation of a direct message.
type MessageResponse struct {
	ID            uint      `json:"id,omitempty"`
	SenderID      string    `json:"sender_id"`
	ReceiverID    string    `json:"receiver_id"`
	Content       string    `json:"content"`
	SentAt        time.Time `json:"sent_at"`
	IsRead        bool      `json:"is_read"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Pending       bool      `json:"pending,omitempty"`
}

// NewMessageResponse converts a model into a DTO.
func NewMessageResponse(message models.ChatMessage) MessageResponse {
	return MessageResponse{
		ID:         message.ID,
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		Content:    message.Content,
		SentAt:     message.SentAt,
		IsRead:     message.IsRead,
	}
}

// NewMessageResponseSlice converts a slice of models into DTOs.
func NewMessageResponseSlice(messages []models.ChatMessage) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}

// ConversationResponse is one inbox preview entry: the partner's profile and
// the most recent message exchanged with them.
type ConversationResponse struct {
	PartnerID   string    `json:"partner_id"`
	Username    string    `json:"username"`
	AvatarURL   string    `json:"avatar_url"`
	LastMessage string    `json:"last_message"`
	LastSentAt  time.Time `json:"last_sent_at"`
	Unread      bool      `json:"unread"`
}
