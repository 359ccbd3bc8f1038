package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sbel2/citale-api/internal/dto"
	"github.com/sbel2/citale-api/internal/models"
	"github.com/sbel2/citale-api/internal/repository"
)

type notificationsStub struct {
	NotificationService
	unread bool
	calls  int
}

func (n *notificationsStub) HasUnread(ctx context.Context, viewerID string) (bool, error) {
	n.calls++
	return n.unread, nil
}

func TestBadgeServiceCombinesBothSources(t *testing.T) {
	db := setupServiceTestDB(t, &models.ChatMessage{})
	_, client := newTestRedis(t)
	notifications := &notificationsStub{unread: true}

	svc := NewBadgeService(repository.NewChatRepository(db), notifications, client, time.Minute, zerolog.Nop())

	require.NoError(t, db.Create(&models.ChatMessage{SenderID: "bob", ReceiverID: "alice", Content: "hi", SentAt: time.Now().UTC()}).Error)

	badges, err := svc.Badges(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, dto.BadgeResponse{UnreadMessages: true, UnreadNotifications: true}, badges)
}

func TestBadgeServiceCachesResult(t *testing.T) {
	db := setupServiceTestDB(t, &models.ChatMessage{})
	_, client := newTestRedis(t)
	notifications := &notificationsStub{unread: false}

	svc := NewBadgeService(repository.NewChatRepository(db), notifications, client, time.Minute, zerolog.Nop())

	first, err := svc.Badges(context.Background(), "alice")
	require.NoError(t, err)
	require.False(t, first.UnreadMessages)
	require.Equal(t, 1, notifications.calls)

	// New unread data arrives, but the cached value is still served.
	require.NoError(t, db.Create(&models.ChatMessage{SenderID: "bob", ReceiverID: "alice", Content: "hi", SentAt: time.Now().UTC()}).Error)
	notifications.unread = true

	second, err := svc.Badges(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, notifications.calls, "cache hit must not recompute")
}

func TestBadgeServiceInvalidateDropsCachedState(t *testing.T) {
	db := setupServiceTestDB(t, &models.ChatMessage{})
	_, client := newTestRedis(t)
	notifications := &notificationsStub{unread: true}

	svc := NewBadgeService(repository.NewChatRepository(db), notifications, client, time.Minute, zerolog.Nop())

	ctx := context.Background()
	first, err := svc.Badges(ctx, "alice")
	require.NoError(t, err)
	require.True(t, first.UnreadNotifications)
	require.Equal(t, 1, notifications.calls)

	// The viewer clears their notifications; the cache must not keep serving
	// the stale unread state until the TTL runs out.
	notifications.unread = false
	svc.Invalidate(ctx, "alice")

	refreshed, err := svc.Badges(ctx, "alice")
	require.NoError(t, err)
	require.False(t, refreshed.UnreadNotifications)
	require.Equal(t, 2, notifications.calls)
}

func TestBadgeServiceInvalidateWithoutCache(t *testing.T) {
	db := setupServiceTestDB(t, &models.ChatMessage{})
	notifications := &notificationsStub{}

	svc := NewBadgeService(repository.NewChatRepository(db), notifications, nil, time.Minute, zerolog.Nop())

	// Must be a no-op rather than a panic.
	svc.Invalidate(context.Background(), "alice")
}

func TestBadgeServiceCacheExpiry(t *testing.T) {
	db := setupServiceTestDB(t, &models.ChatMessage{})
	mini, client := newTestRedis(t)
	notifications := &notificationsStub{unread: false}

	svc := NewBadgeService(repository.NewChatRepository(db), notifications, client, time.Second, zerolog.Nop())

	_, err := svc.Badges(context.Background(), "alice")
	require.NoError(t, err)

	notifications.unread = true
	mini.FastForward(2 * time.Second)

	refreshed, err := svc.Badges(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, refreshed.UnreadNotifications)
	require.Equal(t, 2, notifications.calls)
}

func TestBadgeServiceWorksWithoutCache(t *testing.T) {
	db := setupServiceTestDB(t, &models.ChatMessage{})
	notifications := &notificationsStub{unread: false}

	svc := NewBadgeService(repository.NewChatRepository(db), notifications, nil, time.Minute, zerolog.Nop())

	badges, err := svc.Badges(context.Background(), "alice")
	require.NoError(t, err)
	require.False(t, badges.UnreadMessages)
	require.False(t, badges.UnreadNotifications)
}
