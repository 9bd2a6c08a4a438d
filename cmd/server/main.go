package main

// @title           Rideshare Realtime API
// @version         1.0
// @description     Accounts, conversations, messages and notifications for the rideshare platform, with realtime delivery over WebSocket.
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "rideshare-service/docs"
	"rideshare-service/internal/api/handlers"
	"rideshare-service/internal/api/middleware"
	"rideshare-service/internal/api/routes"
	"rideshare-service/internal/config"
	"rideshare-service/internal/database"
	"rideshare-service/internal/events"
	"rideshare-service/internal/repositories/postgres"
	"rideshare-service/internal/services"
	"rideshare-service/internal/ws"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	slog.Info("Starting rideshare realtime server")

	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	userRepo := postgres.NewUserRepository(db)
	channelRepo := postgres.NewChannelRepository(db)
	messageRepo := postgres.NewMessageRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	presence := services.NewPresenceService(redisClient)

	hubOpts := []ws.HubOption{ws.WithPresence(presence)}
	var mirror *events.KafkaMirror
	if cfg.Kafka.Enabled {
		producer, err := events.NewProducer(cfg.Kafka)
		if err != nil {
			slog.Error("Failed to create Kafka producer", "brokers", cfg.Kafka.Brokers, "error", err)
			os.Exit(1)
		}
		mirror = events.NewKafkaMirror(producer, cfg.Kafka.EventsTopic, 0)
		hubOpts = append(hubOpts, ws.WithMirror(mirror))
	}
	hub := ws.NewHub(hubOpts...)

	userService := services.NewUserService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpirationTime)
	channelService := services.NewChannelService(channelRepo, userRepo, hub)
	hub.SetAuthorizer(channelService)
	messageService := services.NewMessageService(messageRepo, channelRepo, userRepo, hub)
	notificationService := services.NewNotificationService(notificationRepo, hub)

	var attachments *services.AttachmentService
	if cfg.MinIO.Enabled {
		store, err := database.NewMinIOClient(context.Background(), cfg.MinIO)
		if err != nil {
			slog.Error("Failed to connect to MinIO", "endpoint", cfg.MinIO.Endpoint, "error", err)
			os.Exit(1)
		}
		attachments = services.NewAttachmentService(store, cfg.MinIO.Bucket)
	} else {
		attachments = services.NewAttachmentService(nil, "")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var ingestor *events.Ingestor
	ingestDone := make(chan struct{})
	if cfg.Kafka.Enabled {
		ingestor = events.NewIngestor(events.NewReader(cfg.Kafka), hub, notificationService)
		go func() {
			defer close(ingestDone)
			if err := ingestor.Run(ctx); err != nil {
				slog.Error("Event ingestor stopped", "error", err)
			}
		}()
	} else {
		close(ingestDone)
	}

	origins := cfg.WebSocket.AllowedOrigins
	if len(origins) == 0 {
		origins = cfg.Server.AllowedOrigins
	}
	router := routes.NewRouter(
		cfg.Server.AllowedOrigins,
		routes.Handlers{
			Auth:         handlers.NewAuthHandler(userService),
			User:         handlers.NewUserHandler(userService, presence),
			Channel:      handlers.NewChannelHandler(channelService),
			Message:      handlers.NewMessageHandler(messageService, attachments),
			Notification: handlers.NewNotificationHandler(notificationService),
			WS:           handlers.NewWSHandler(hub, origins),
		},
		middleware.NewAuthMiddleware(userService),
		middleware.NewRateLimitMiddleware(presence),
	)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	// Stop ingesting before the hub goes away, then drain the mirror.
	stop()
	<-ingestDone
	if ingestor != nil {
		if err := ingestor.Close(); err != nil {
			slog.Warn("Failed to close Kafka reader", "error", err)
		}
	}
	hub.Shutdown(cfg.Server.ShutdownTimeout)
	if mirror != nil {
		if err := mirror.Close(); err != nil {
			slog.Warn("Failed to close Kafka producer", "error", err)
		}
	}

	slog.Info("Server stopped")
}
