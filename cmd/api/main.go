package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/sbel2/citale-api/internal/config"
	"github.com/sbel2/citale-api/internal/database"
	"github.com/sbel2/citale-api/internal/handler"
	"github.com/sbel2/citale-api/internal/middleware"
	"github.com/sbel2/citale-api/internal/repository"
	"github.com/sbel2/citale-api/internal/router"
	"github.com/sbel2/citale-api/internal/service"
	cloud "github.com/sbel2/citale-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSServerURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	chatRepo := repository.NewChatRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	postRepo := repository.NewPostRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)

	readState := service.NewReadStateStore(redisClient, cfg.ChannelBase, logger)

	conversationService := service.NewConversationService(chatRepo, profileRepo, logger)
	threadService := service.NewThreadService(chatRepo, redisClient, cfg.ChannelBase, natsConn, validate, cfg.ThreadPollInterval, logger)
	notificationService := service.NewNotificationService(postRepo, engagementRepo, profileRepo, readState, logger)
	badgeService := service.NewBadgeService(chatRepo, notificationService, redisClient, cfg.BadgeCacheTTL, logger)
	postService := service.NewPostService(postRepo, validate, logger)
	engagementService := service.NewEngagementService(engagementRepo, postRepo, validate, logger)
	uploadService := service.NewUploadService(uploader, cfg.UploadMaxSizeMB, logger)

	var completer service.ChatCompleter
	if cfg.OpenAIAPIKey != "" {
		completer = openai.NewClient(cfg.OpenAIAPIKey)
	}
	assistantService := service.NewAssistantService(completer, cfg.TalebotModel, validate, logger)

	appCtx, stopFanout := context.WithCancel(context.Background())
	defer stopFanout()
	threadService.Start(appCtx)

	chatHandler := handler.NewChatHandler(conversationService, threadService, validate, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, badgeService, logger)
	postHandler := handler.NewPostHandler(postService, logger)
	engagementHandler := handler.NewEngagementHandler(engagementService, validate, logger)
	uploadHandler := handler.NewUploadHandler(uploadService, logger)
	assistantHandler := handler.NewAssistantHandler(assistantService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		PostHandler:         postHandler,
		EngagementHandler:   engagementHandler,
		ChatHandler:         chatHandler,
		NotificationHandler: notificationHandler,
		UploadHandler:       uploadHandler,
		AssistantHandler:    assistantHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
