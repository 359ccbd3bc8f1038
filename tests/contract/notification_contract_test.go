package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/sbel2/citale-api/internal/dto"
	"github.com/sbel2/citale-api/internal/handler"
)

type stubNotificationService struct {
	feed []dto.NotificationResponse
}

func (s stubNotificationService) Feed(context.Context, string) ([]dto.NotificationResponse, error) {
	return s.feed, nil
}

func (s stubNotificationService) MarkRead(context.Context, string, dto.NotificationRef) error {
	return nil
}

func (s stubNotificationService) MarkUnread(context.Context, string, dto.NotificationRef) error {
	return nil
}

func (s stubNotificationService) MarkAllRead(context.Context, string) error   { return nil }
func (s stubNotificationService) MarkAllUnread(context.Context, string) error { return nil }

func (s stubNotificationService) HasUnread(context.Context, string) (bool, error) {
	return len(s.feed) > 0, nil
}

type stubBadgeService struct{}

func (stubBadgeService) Badges(context.Context, string) (dto.BadgeResponse, error) {
	return dto.BadgeResponse{}, nil
}

func (stubBadgeService) Invalidate(context.Context, string) {}

func TestNotificationFeedContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "notification_feed.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	now := time.Now().UTC()
	svc := stubNotificationService{feed: []dto.NotificationResponse{
		{
			Kind:           dto.NotificationKindComment,
			ID:             31,
			ActorID:        "bob",
			ActorUsername:  "bob",
			ActorAvatarURL: "https://cdn.example.com/bob.png",
			PostID:         9,
			PostTitle:      "Jazz night at the docks",
			CommentID:      31,
			CommentContent: "count me in",
			OccurredAt:     now,
			Read:           false,
		},
		{
			Kind:           dto.NotificationKindLike,
			ID:             12,
			ActorID:        "carol",
			ActorUsername:  "carol",
			ActorAvatarURL: "",
			PostID:         9,
			PostTitle:      "Jazz night at the docks",
			OccurredAt:     now.Add(-time.Hour),
			Read:           true,
		},
		{
			Kind:           dto.NotificationKindCommentLike,
			ID:             4,
			ActorID:        "dave",
			ActorUsername:  "dave",
			ActorAvatarURL: "",
			PostTitle:      dto.DeletedPostLabel,
			CommentID:      31,
			CommentContent: "count me in",
			OccurredAt:     now.Add(-2 * time.Hour),
			Read:           false,
		},
	}}

	app := fiber.New()
	group := app.Group("/api/v1/notifications", func(c *fiber.Ctx) error {
		c.Locals("user_id", "alice")
		return c.Next()
	})
	handler.NewNotificationHandler(svc, stubBadgeService{}, zerolog.Nop()).Register(group)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
