package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sbel2/citale-api/internal/config"
	"github.com/sbel2/citale-api/internal/handler"
	"github.com/sbel2/citale-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	PostHandler         *handler.PostHandler
	EngagementHandler   *handler.EngagementHandler
	ChatHandler         *handler.ChatHandler
	NotificationHandler *handler.NotificationHandler
	UploadHandler       *handler.UploadHandler
	AssistantHandler    *handler.AssistantHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Discovery feed: reads are public, engagement needs auth.
	if deps.PostHandler != nil {
		posts := api.Group("/posts")
		deps.PostHandler.Register(posts)

		if deps.EngagementHandler != nil {
			deps.EngagementHandler.RegisterPostRoutes(posts.Group("", requireAuthForWrites(jwtMiddleware)))
			comments := api.Group("/comments", jwtMiddleware)
			deps.EngagementHandler.RegisterCommentRoutes(comments)
		}
	}

	// Messaging
	if deps.ChatHandler != nil {
		chat := api.Group("/chat", jwtMiddleware)
		deps.ChatHandler.Register(chat)
	}

	// Notifications + badges
	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
		deps.NotificationHandler.RegisterBadges(api.Group("", jwtMiddleware))
	}

	if deps.UploadHandler != nil {
		upload := api.Group("/upload", jwtMiddleware)
		deps.UploadHandler.Register(upload)
	}

	if deps.AssistantHandler != nil {
		deps.AssistantHandler.Register(api.Group("", jwtMiddleware))
	}

	app.Get("/metrics", observability.MetricsHandler())
}

// requireAuthForWrites leaves GETs open and guards everything else.
func requireAuthForWrites(jwt fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet {
			return c.Next()
		}
		return jwt(c)
	}
}
