package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sbel2/citale-api/internal/dto"
	"github.com/sbel2/citale-api/internal/handler"
)

type stubNotificationService struct {
	feed       []dto.NotificationResponse
	feedErr    error
	lastViewer string
	lastRef    dto.NotificationRef
	readCalls  int
	unread     int
	allRead    int
	allUnread  int
}

func (s *stubNotificationService) Feed(_ context.Context, viewerID string) ([]dto.NotificationResponse, error) {
	s.lastViewer = viewerID
	return s.feed, s.feedErr
}

func (s *stubNotificationService) MarkRead(_ context.Context, viewerID string, ref dto.NotificationRef) error {
	s.lastViewer = viewerID
	s.lastRef = ref
	s.readCalls++
	return nil
}

func (s *stubNotificationService) MarkUnread(_ context.Context, viewerID string, ref dto.NotificationRef) error {
	s.lastViewer = viewerID
	s.lastRef = ref
	s.unread++
	return nil
}

func (s *stubNotificationService) MarkAllRead(_ context.Context, viewerID string) error {
	s.lastViewer = viewerID
	s.allRead++
	return nil
}

func (s *stubNotificationService) MarkAllUnread(_ context.Context, viewerID string) error {
	s.lastViewer = viewerID
	s.allUnread++
	return nil
}

func (s *stubNotificationService) HasUnread(context.Context, string) (bool, error) {
	return len(s.feed) > 0, nil
}

type stubBadgeService struct {
	badges      dto.BadgeResponse
	invalidated int
}

func (s *stubBadgeService) Badges(context.Context, string) (dto.BadgeResponse, error) {
	return s.badges, nil
}

func (s *stubBadgeService) Invalidate(context.Context, string) {
	s.invalidated++
}

func newNotificationApp(svc *stubNotificationService, badges *stubBadgeService, viewerID string) *fiber.App {
	app := fiber.New()
	authenticate := func(c *fiber.Ctx) error {
		if viewerID != "" {
			c.Locals("user_id", viewerID)
		}
		return c.Next()
	}
	h := handler.NewNotificationHandler(svc, badges, zerolog.Nop())
	h.Register(app.Group("/api/v1/notifications", authenticate))
	h.RegisterBadges(app.Group("/api/v1", authenticate))
	return app
}

func TestNotificationHandlerFeed(t *testing.T) {
	svc := &stubNotificationService{feed: []dto.NotificationResponse{
		{Kind: dto.NotificationKindComment, ID: 3, ActorID: "bob", PostTitle: "Jazz night", OccurredAt: time.Now()},
	}}
	app := newNotificationApp(svc, &stubBadgeService{}, "alice")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/notifications/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var feed []dto.NotificationResponse
	success, message := decodeAPIResponse(t, resp, &feed)
	require.True(t, success)
	require.Equal(t, "notifications", message)
	require.Len(t, feed, 1)
	require.Equal(t, dto.NotificationKindComment, feed[0].Kind)
	require.Equal(t, "alice", svc.lastViewer)
}

func TestNotificationHandlerFeedUnauthorized(t *testing.T) {
	app := newNotificationApp(&stubNotificationService{}, &stubBadgeService{}, "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/notifications/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	svc := &stubNotificationService{}
	badges := &stubBadgeService{}
	app := newNotificationApp(svc, badges, "alice")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/comment/12/read", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 1, svc.readCalls)
	require.Equal(t, dto.NotificationRef{Kind: dto.NotificationKindComment, ID: 12}, svc.lastRef)
	require.Equal(t, 1, badges.invalidated, "read-state change must drop the badge cache")
}

func TestNotificationHandlerMarkUnread(t *testing.T) {
	svc := &stubNotificationService{}
	app := newNotificationApp(svc, &stubBadgeService{}, "alice")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/like/7/unread", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 1, svc.unread)
	require.Equal(t, dto.NotificationRef{Kind: dto.NotificationKindLike, ID: 7}, svc.lastRef)
}

func TestNotificationHandlerInvalidKind(t *testing.T) {
	svc := &stubNotificationService{}
	app := newNotificationApp(svc, &stubBadgeService{}, "alice")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/follow/7/read", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Zero(t, svc.readCalls)
}

func TestNotificationHandlerInvalidID(t *testing.T) {
	app := newNotificationApp(&stubNotificationService{}, &stubBadgeService{}, "alice")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/comment/abc/read", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestNotificationHandlerMarkAll(t *testing.T) {
	svc := &stubNotificationService{}
	badges := &stubBadgeService{}
	app := newNotificationApp(svc, badges, "alice")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 1, svc.allRead)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/unread-all", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 1, svc.allUnread)
	require.Equal(t, 2, badges.invalidated, "every read-state change must drop the badge cache")
}

func TestNotificationHandlerBadges(t *testing.T) {
	badges := &stubBadgeService{badges: dto.BadgeResponse{UnreadMessages: true}}
	app := newNotificationApp(&stubNotificationService{}, badges, "alice")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/badges", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload dto.BadgeResponse
	success, _ := decodeAPIResponse(t, resp, &payload)
	require.True(t, success)
	require.True(t, payload.UnreadMessages)
	require.False(t, payload.UnreadNotifications)
}
