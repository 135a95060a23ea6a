package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wellbeing-backend/internal/config"
	"wellbeing-backend/internal/database"
	"wellbeing-backend/internal/handlers"
	"wellbeing-backend/internal/middleware"
	"wellbeing-backend/internal/repository"
	"wellbeing-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Apply schema migrations
	if err := database.RunMigrations(cfg.Database.URL()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	companionRepo := repository.NewCompanionRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	contactRepo := repository.NewContactRepository(db)

	// Initialize services
	userService := services.NewUserService(userRepo, cfg.JWT.Secret)
	matchingService := services.NewMatchingService(companionRepo)
	wsHub := services.NewWSHub()

	pushSender, err := services.NewAPNsSender(cfg.APNs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create push sender")
	}

	notifier := services.NewNotifier(pushSender, userRepo, matchingService, wsHub,
		cfg.Notification.Workers, cfg.Notification.QueueSize)

	moderator := services.NewModerator()
	channelService := services.NewChannelService(channelRepo, messageRepo, userRepo, moderator, notifier, wsHub)

	archiveService, err := services.NewArchiveService(alertRepo, channelRepo, messageRepo,
		cfg.AWS.Region, cfg.AWS.ArchiveBucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create archive service")
	}

	alertService := services.NewAlertService(alertRepo, companionRepo, channelService, notifier, archiveService)
	companionService := services.NewCompanionService(companionRepo, userRepo,
		time.Duration(cfg.Availability.StaleAfterMin)*time.Minute)
	contactService := services.NewContactService(contactRepo)

	// Start the notification worker pool
	notifierCtx, notifierCancel := context.WithCancel(context.Background())
	defer notifierCancel()
	notifier.Start(notifierCtx)

	// Start the stale availability sweeper
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Availability.SweepSchedule, func() {
		companionService.SweepStale(context.Background())
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule availability sweep")
	}
	sweeper.Start()

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	companionHandler := handlers.NewCompanionHandler(companionService)
	emergencyHandler := handlers.NewEmergencyHandler(alertService, contactService)
	chatHandler := handlers.NewChatHandler(channelService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))
			r.Put("/users/push-token", userHandler.UpdatePushToken)

			r.Post("/companions", companionHandler.Register)
			r.Post("/companions/{user_id}/verify", companionHandler.Verify)
			r.Put("/companions/availability", companionHandler.ReportAvailability)

			r.Post("/emergency/panic", emergencyHandler.Panic)
			r.Post("/emergency/alert/{alert_id}/respond", emergencyHandler.Respond)
			r.Put("/emergency/alert/{alert_id}/resolve", emergencyHandler.Resolve)
			r.Get("/emergency/contacts/{country}", emergencyHandler.GetContacts)

			r.Get("/chat/channel/{channel_id}/messages", chatHandler.GetMessages)
			r.Post("/chat/channel/{channel_id}/messages", chatHandler.SendMessage)
			r.Post("/chat/channel/{channel_id}/escalate", chatHandler.Escalate)
			r.Post("/chat/channel/{channel_id}/participants", chatHandler.AddParticipant)
			r.Delete("/chat/channel/{channel_id}/participants/{user_id}", chatHandler.RemoveParticipant)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sweeper.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Drain in-flight notifications
	notifier.Stop()

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
