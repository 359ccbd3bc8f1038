package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sbel2/citale-api/internal/dto"
)

// readStateSchemaVersion is part of every key so the layout can be migrated
// without clashing with older entries.
const readStateSchemaVersion = "v1"

// ReadStateStore tracks which notifications a viewer has read. State is kept
// independently of the notification sources: one key per (viewer, kind, id),
// written atomically, so concurrent sessions cannot lose each other's
// updates. An absent entry means unread.
type ReadStateStore interface {
	MarkRead(ctx context.Context, viewerID string, ref dto.NotificationRef) error
	MarkUnread(ctx context.Context, viewerID string, ref dto.NotificationRef) error
	MarkAllRead(ctx context.Context, viewerID string, refs []dto.NotificationRef) error
	MarkAllUnread(ctx context.Context, viewerID string, refs []dto.NotificationRef) error
	IsUnread(ctx context.Context, viewerID string, ref dto.NotificationRef) (bool, error)
	// Overlay reports the read flag for every ref in one round-trip.
	Overlay(ctx context.Context, viewerID string, refs []dto.NotificationRef) (map[dto.NotificationRef]bool, error)
	HasUnread(ctx context.Context, viewerID string, refs []dto.NotificationRef) (bool, error)
}

type readStateStore struct {
	redis  *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewReadStateStore constructs a redis-backed read-state store.
func NewReadStateStore(redisClient *redis.Client, channelBase string, logger zerolog.Logger) ReadStateStore {
	if channelBase == "" {
		channelBase = "citale"
	}

	return &readStateStore{
		redis:  redisClient,
		prefix: fmt.Sprintf("%s:readstate:%s", channelBase, readStateSchemaVersion),
		logger: logger.With().Str("component", "read_state_store").Logger(),
	}
}

func (s *readStateStore) key(viewerID string, ref dto.NotificationRef) string {
	return fmt.Sprintf("%s:%s:%s:%d", s.prefix, viewerID, ref.Kind, ref.ID)
}

func (s *readStateStore) MarkRead(ctx context.Context, viewerID string, ref dto.NotificationRef) error {
	return s.redis.Set(ctx, s.key(viewerID, ref), "1", 0).Err()
}

func (s *readStateStore) MarkUnread(ctx context.Context, viewerID string, ref dto.NotificationRef) error {
	return s.redis.Set(ctx, s.key(viewerID, ref), "0", 0).Err()
}

func (s *readStateStore) MarkAllRead(ctx context.Context, viewerID string, refs []dto.NotificationRef) error {
	return s.setAll(ctx, viewerID, refs, "1")
}

func (s *readStateStore) MarkAllUnread(ctx context.Context, viewerID string, refs []dto.NotificationRef) error {
	return s.setAll(ctx, viewerID, refs, "0")
}

func (s *readStateStore) setAll(ctx context.Context, viewerID string, refs []dto.NotificationRef, value string) error {
	if len(refs) == 0 {
		return nil
	}

	pipe := s.redis.Pipeline()
	for _, ref := range refs {
		pipe.Set(ctx, s.key(viewerID, ref), value, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to bulk-update read state: %w", err)
	}
	return nil
}

func (s *readStateStore) IsUnread(ctx context.Context, viewerID string, ref dto.NotificationRef) (bool, error) {
	value, err := s.redis.Get(ctx, s.key(viewerID, ref)).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return value != "1", nil
}

func (s *readStateStore) Overlay(ctx context.Context, viewerID string, refs []dto.NotificationRef) (map[dto.NotificationRef]bool, error) {
	result := make(map[dto.NotificationRef]bool, len(refs))
	if len(refs) == 0 {
		return result, nil
	}

	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		keys = append(keys, s.key(viewerID, ref))
	}

	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load read state: %w", err)
	}

	for i, ref := range refs {
		read := false
		if value, ok := values[i].(string); ok {
			read = value == "1"
		}
		result[ref] = read
	}

	return result, nil
}

func (s *readStateStore) HasUnread(ctx context.Context, viewerID string, refs []dto.NotificationRef) (bool, error) {
	overlay, err := s.Overlay(ctx, viewerID, refs)
	if err != nil {
		return false, err
	}

	for _, read := range overlay {
		if !read {
			return true, nil
		}
	}
	return false, nil
}
