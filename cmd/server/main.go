package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/aulacast/backend/config"
	"github.com/aulacast/backend/internal/auth"
	"github.com/aulacast/backend/internal/broadcast"
	"github.com/aulacast/backend/internal/cache"
	"github.com/aulacast/backend/internal/database"
	"github.com/aulacast/backend/internal/handlers"
	"github.com/aulacast/backend/internal/logger"
	"github.com/aulacast/backend/internal/metrics"
	"github.com/aulacast/backend/internal/middleware"
	"github.com/aulacast/backend/internal/provider"
	"github.com/aulacast/backend/internal/repository"
	"github.com/aulacast/backend/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	// Connect to database
	db, err := database.NewPostgresDB(cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	log.Println("Running database migrations...")
	if err := database.RunMigrations(db.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	// Connect to Redis
	redis, err := cache.NewRedisClient(cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		log.Println("Running without Redis - the live event feed is disabled")
		redis = nil
	} else {
		defer redis.Close()
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	m := metrics.New()

	// Initialize repositories
	broadcastRepo := repository.NewBroadcastRepository(db)
	credRepo := repository.NewCredentialRepository(db)
	recordingRepo := repository.NewRecordingRepository(db)
	checkRepo := repository.NewCheckRepository(db)

	// Platform client with OAuth refresh
	tokens := provider.NewTokenService(cfg.Provider.TokenURL, cfg.Provider.ClientID, cfg.Provider.ClientSecret, cfg.Provider.RequestTimeout, credRepo)
	client := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.RequestTimeout, cfg.Provider.RatePerSec, credRepo, tokens, m)

	var events broadcast.EventPublisher
	if redis != nil {
		events = redis
	}

	svc := broadcast.NewService(client, broadcastRepo, credRepo, checkRepo, recordingRepo, events, m, slogger, broadcast.Options{
		TitlePrefix:    cfg.Sync.TitlePrefix,
		DemoFallback:   cfg.Sync.DemoFallback,
		FinalizerDelay: cfg.Sync.FinalizerDelay,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background workers: the recording finalizer sweep and the lifecycle poller.
	finalizer := broadcast.NewFinalizer(svc, cfg.Sync.SweepInterval, slogger)
	go finalizer.Run(ctx)

	poller := broadcast.NewPoller(svc, cfg.Admin.Email, cfg.Sync.PollInterval, slogger)
	go poller.Run(ctx)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg.Admin, jwtService)
	sessionHandler := handlers.NewSessionHandler(svc)

	// Initialize WebSocket hub (only if Redis is available)
	var wsHandler *websocket.Handler
	if redis != nil {
		hub := websocket.NewHub(redis, slogger)
		go hub.Run()
		wsHandler = websocket.NewHandler(hub, jwtService, cfg.CORS.AllowedOrigins)
	}

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg.Sync.RateLimitPerSec)
	rateLimiter.Cleanup()

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Metrics, with gauges refreshed on scrape
	router.GET("/metrics", gin.WrapH(m.Handler(func() {
		if n, err := broadcastRepo.ActiveCount(); err == nil {
			m.SetActiveSessions(n)
		}
	})))

	// Public routes
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
	}

	// WebSocket endpoint (only if Redis is available)
	if wsHandler != nil {
		router.GET("/ws", wsHandler.HandleWebSocket)
	}

	// Protected routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtService))
	api.Use(middleware.RateLimitMiddleware(rateLimiter))
	{
		api.POST("/sessions/sync", sessionHandler.Sync)
		api.GET("/sessions", sessionHandler.List)
		api.GET("/sessions/active", sessionHandler.GetActive)
		api.POST("/sessions", sessionHandler.Create)
		api.POST("/sessions/:id/start", sessionHandler.Start)
		api.POST("/sessions/:id/end", sessionHandler.End)
		api.GET("/sessions/:id/status", sessionHandler.Status)
		api.PUT("/sessions/:id", sessionHandler.Update)
		api.POST("/sessions/override", sessionHandler.Override)

		api.GET("/recordings", sessionHandler.ListRecordings)
		api.PUT("/credentials", sessionHandler.SaveCredentials)
	}

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Starting Aulacast server on %s (env: %s)", addr, cfg.Server.Env)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
