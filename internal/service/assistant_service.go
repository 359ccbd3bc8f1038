package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/sbel2/citale-api/internal/dto"
)

const talebotSystemPrompt = "You are Talebot, the Citale assistant. You help users discover " +
	"local events in Boston: things to do, places to see, food and culture. " +
	"Keep answers short and concrete, and only recommend real, public activities."

// ErrAssistantUnavailable indicates no assistant backend is configured.
var ErrAssistantUnavailable = errors.New("assistant is not configured")

// ChatCompleter is the slice of the OpenAI client the assistant needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// AssistantService answers Talebot conversations.
type AssistantService interface {
	Reply(ctx context.Context, viewerID string, req dto.TalebotRequest) (dto.TalebotResponse, error)
}

type assistantService struct {
	client    ChatCompleter
	model     string
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAssistantService constructs the Talebot service. A nil client disables it.
func NewAssistantService(client ChatCompleter, model string, validate *validator.Validate, logger zerolog.Logger) AssistantService {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &assistantService{
		client:    client,
		model:     model,
		validator: validate,
		logger:    logger.With().Str("component", "assistant_service").Logger(),
	}
}

func (s *assistantService) Reply(ctx context.Context, viewerID string, req dto.TalebotRequest) (dto.TalebotResponse, error) {
	if s.client == nil {
		return dto.TalebotResponse{}, ErrAssistantUnavailable
	}

	if err := s.validator.Struct(req); err != nil {
		return dto.TalebotResponse{}, err
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: talebotSystemPrompt,
	})
	for _, message := range req.Messages {
		role := openai.ChatMessageRoleUser
		if message.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: message.Content,
		})
	}

	response, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: messages,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", viewerID).Msg("assistant completion failed")
		return dto.TalebotResponse{}, err
	}

	if len(response.Choices) == 0 {
		return dto.TalebotResponse{}, errors.New("assistant returned no choices")
	}

	return dto.TalebotResponse{
		Reply: strings.TrimSpace(response.Choices[0].Message.Content),
		Model: response.Model,
	}, nil
}
