package service

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sbel2/citale-api/internal/dto"
	"github.com/sbel2/citale-api/internal/models"
	"github.com/sbel2/citale-api/internal/observability"
	"github.com/sbel2/citale-api/internal/repository"
)

// ConversationService builds inbox previews: one entry per conversation
// partner, carrying that partner's most recent message.
type ConversationService interface {
	ListConversations(ctx context.Context, viewerID string) ([]dto.ConversationResponse, error)
}

type conversationService struct {
	chats    repository.ChatRepository
	profiles repository.ProfileRepository
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewConversationService constructs the inbox aggregator.
func NewConversationService(chats repository.ChatRepository, profiles repository.ProfileRepository, logger zerolog.Logger) ConversationService {
	return &conversationService{
		chats:    chats,
		profiles: profiles,
		logger:   logger.With().Str("component", "conversation_service").Logger(),
		tracer:   otel.Tracer("github.com/sbel2/citale-api/internal/service/conversation"),
	}
}

func (s *conversationService) ListConversations(ctx context.Context, viewerID string) ([]dto.ConversationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "conversations.list", trace.WithAttributes(
		attribute.String("chat.viewer_id", viewerID),
	))
	defer span.End()

	messages, err := s.chats.ListInvolving(spanCtx, viewerID)
	if err != nil {
		span.RecordError(err)
		observability.ConversationFetches().WithLabelValues("error").Inc()
		return nil, err
	}

	// Retain only the newest message per partner.
	latest := make(map[string]models.ChatMessage)
	for _, message := range messages {
		partnerID := message.ReceiverID
		if message.SenderID != viewerID {
			partnerID = message.SenderID
		}

		if current, ok := latest[partnerID]; !ok || message.SentAt.After(current.SentAt) {
			latest[partnerID] = message
		}
	}

	partnerIDs := make([]string, 0, len(latest))
	for partnerID := range latest {
		partnerIDs = append(partnerIDs, partnerID)
	}

	profiles, err := s.profiles.FindByIDs(spanCtx, partnerIDs)
	if err != nil {
		span.RecordError(err)
		observability.ConversationFetches().WithLabelValues("error").Inc()
		return nil, err
	}

	conversations := make([]dto.ConversationResponse, 0, len(latest))
	for partnerID, message := range latest {
		profile, ok := profiles[partnerID]
		if !ok {
			// Partner without a profile row is dropped, the rest of the
			// inbox still renders.
			s.logger.Warn().Str("partner_id", partnerID).Msg("profile lookup failed, skipping conversation")
			continue
		}

		conversations = append(conversations, dto.ConversationResponse{
			PartnerID:   partnerID,
			Username:    profile.Username,
			AvatarURL:   profile.AvatarURL,
			LastMessage: message.Content,
			LastSentAt:  message.SentAt,
			Unread:      message.ReceiverID == viewerID && !message.IsRead,
		})
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastSentAt.After(conversations[j].LastSentAt)
	})

	observability.ConversationFetches().WithLabelValues("ok").Inc()

	return conversations, nil
}
