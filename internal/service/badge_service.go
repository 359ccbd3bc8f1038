package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sbel2/citale-api/internal/dto"
	"github.com/sbel2/citale-api/internal/repository"
)

// BadgeService computes the toolbar indicator state: whether the viewer has
// any unread direct message and any unread notification.
type BadgeService interface {
	Badges(ctx context.Context, viewerID string) (dto.BadgeResponse, error)
	Invalidate(ctx context.Context, viewerID string)
}

type badgeService struct {
	chats         repository.ChatRepository
	notifications NotificationService
	cache         *redis.Client
	ttl           time.Duration
	logger        zerolog.Logger
}

// NewBadgeService constructs the badge service. The redis cache is optional;
// without one every call recomputes.
func NewBadgeService(chats repository.ChatRepository, notifications NotificationService, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) BadgeService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &badgeService{
		chats:         chats,
		notifications: notifications,
		cache:         cache,
		ttl:           ttl,
		logger:        logger.With().Str("component", "badge_service").Logger(),
	}
}

// Invalidate drops the viewer's cached badge state so the next read
// recomputes. Called after read-state mutations; without it the toolbar could
// show cleared notifications as unread for a full TTL.
func (s *badgeService) Invalidate(ctx context.Context, viewerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, badgeCacheKey(viewerID)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate badge cache")
	}
}

func badgeCacheKey(viewerID string) string {
	return fmt.Sprintf("citale:badges:v1:%s", viewerID)
}

func (s *badgeService) Badges(ctx context.Context, viewerID string) (dto.BadgeResponse, error) {
	cacheKey := badgeCacheKey(viewerID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var response dto.BadgeResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				return response, nil
			}
		}
	}

	unreadMessages, err := s.chats.HasUnread(ctx, viewerID)
	if err != nil {
		return dto.BadgeResponse{}, err
	}

	unreadNotifications, err := s.notifications.HasUnread(ctx, viewerID)
	if err != nil {
		return dto.BadgeResponse{}, err
	}

	response := dto.BadgeResponse{
		UnreadMessages:      unreadMessages,
		UnreadNotifications: unreadNotifications,
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to write badge cache")
			}
		}
	}

	return response, nil
}
