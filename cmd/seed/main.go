package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"

	"rideshare-service/internal/config"
	"rideshare-service/internal/database"
	"rideshare-service/internal/models"
	"rideshare-service/internal/repositories/postgres"
	"rideshare-service/internal/services"
	"rideshare-service/internal/ws"

	"golang.org/x/crypto/bcrypt"
)

const seedPassword = "123456"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting database seeding...")

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	ctx := context.Background()
	userRepo := postgres.NewUserRepository(db)
	channelRepo := postgres.NewChannelRepository(db)

	// Nobody is connected while seeding, so pushes go to an empty hub.
	hub := ws.NewHub()
	userService := services.NewUserService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpirationTime)
	channelService := services.NewChannelService(channelRepo, userRepo, hub)
	messageService := services.NewMessageService(postgres.NewMessageRepository(db), channelRepo, userRepo, hub)
	notificationService := services.NewNotificationService(postgres.NewNotificationRepository(db), hub)

	// Admins cannot self-register, so the support agent goes straight to the repository.
	hashed, _ := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	admin := &models.User{Username: "support", Email: "support@rideshare.local", Password: string(hashed), Role: models.RoleAdmin}
	if err := userRepo.Create(ctx, admin); err != nil {
		slog.Warn("Support agent might already exist", "error", err)
	} else {
		slog.Info("Created support agent", "id", admin.ID)
	}

	seedUsers := []models.RegisterRequest{
		{Username: "alice", Email: "alice@rideshare.local", Password: seedPassword, Role: models.RoleRider},
		{Username: "bob", Email: "bob@rideshare.local", Password: seedPassword, Role: models.RoleDriver},
		{Username: "acme", Email: "fleet@acme.local", Password: seedPassword, Role: models.RoleEnterprise},
	}
	for i := range seedUsers {
		user, err := userService.Register(ctx, &seedUsers[i])
		if errors.Is(err, services.ErrUserAlreadyExists) {
			slog.Warn("User already exists", "email", seedUsers[i].Email)
			continue
		}
		if err != nil {
			log.Fatal("Failed to create user:", err)
		}
		slog.Info("Created user", "username", user.Username, "role", user.Role, "id", user.ID)
	}

	alice, err := userRepo.FindByEmail(ctx, "alice@rideshare.local")
	if err != nil {
		log.Fatal("Could not find rider:", err)
	}
	bob, err := userRepo.FindByEmail(ctx, "bob@rideshare.local")
	if err != nil {
		log.Fatal("Could not find driver:", err)
	}

	rideID := uint(1001)
	ride, err := channelService.Create(ctx, alice.ID, &models.CreateChannelRequest{
		Type:    models.ChannelTypeRide,
		RideID:  &rideID,
		UserIDs: []uint{bob.ID},
	})
	if err != nil {
		log.Fatal("Failed to create ride channel:", err)
	}
	slog.Info("Created ride channel", "id", ride.ID, "name", ride.Name)

	for _, m := range []struct {
		from uint
		text string
	}{
		{bob.ID, "On my way, about 5 minutes out."},
		{alice.ID, "Great, I'm at the main entrance."},
		{bob.ID, "Arrived. Silver sedan."},
	} {
		text := m.text
		if _, err := messageService.Send(ctx, m.from, ride.ID, &models.SendMessageRequest{Text: &text}); err != nil {
			slog.Warn("Failed to create message", "error", err)
		}
	}

	if support, err := channelService.OpenSupport(ctx, alice.ID); err != nil {
		slog.Warn("Failed to open support conversation", "error", err)
	} else {
		slog.Info("Opened support conversation", "id", support.ID)
	}

	data, _ := json.Marshal(map[string]any{"rideId": rideID, "status": "driver_arrived"})
	if _, err := notificationService.Create(ctx, &models.CreateNotificationRequest{
		UserID: alice.ID,
		Kind:   models.NotificationRideUpdate,
		Title:  "Your driver has arrived",
		Body:   "Bob is waiting at the pickup point.",
		Data:   data,
	}); err != nil {
		slog.Warn("Failed to create notification", "error", err)
	}

	slog.Info("Database seeding completed successfully!")
}
