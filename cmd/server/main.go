package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"placementhelper/internal/config"
	"placementhelper/internal/database"
	"placementhelper/internal/handlers"
	"placementhelper/internal/jobs"
	"placementhelper/internal/logging"
	"placementhelper/internal/middleware"
	"placementhelper/internal/services"
	"placementhelper/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Placement Helper Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Model: %s)", cfg.Port, cfg.LLMModel)

	if cfg.MongoURI == "" {
		log.Fatal("❌ MONGODB_URI environment variable is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET environment variable is required. Generate with: openssl rand -hex 64")
	}
	if cfg.LLMAPIKey == "" {
		log.Fatal("❌ LLM_API_KEY environment variable is required")
	}

	// Connect to MongoDB
	db, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer db.Close(context.Background())

	if err := db.Initialize(context.Background()); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Initialize Prometheus metrics
	metrics := services.InitMetrics()
	log.Println("✅ Prometheus metrics initialized")

	// Initialize authentication
	jwtAuth, err := auth.NewJWTAuth(cfg.JWTSecret, cfg.AccessTokenExpiry)
	if err != nil {
		log.Fatalf("❌ Failed to initialize JWT authentication: %v", err)
	}
	log.Printf("✅ JWT authentication initialized (access token expiry: %v)", cfg.AccessTokenExpiry)

	// Initialize services
	userService := services.NewUserService(db)
	stateService := services.NewStateService(db, cfg.SessionTTL)
	completionService := services.NewCompletionService(services.CompletionConfig{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout,
		RatePerSec:  cfg.LLMRatePerSec,
	}, metrics)
	chatService := services.NewChatService(stateService, completionService)
	reviewService := services.NewReviewService(stateService, completionService)
	calendarService := services.NewCalendarService(stateService)
	aptitudeService := services.NewAptitudeService(stateService, completionService, cfg.TopicsFile)
	log.Println("✅ Services initialized")

	// Start the periodic provider health probe
	var healthChecker *jobs.HealthChecker
	if cfg.HealthCheckInterval > 0 {
		healthChecker, err = jobs.NewHealthChecker(completionService, cfg.HealthCheckInterval)
		if err != nil {
			log.Printf("⚠️ Failed to create health checker: %v", err)
		} else if err := healthChecker.Start(); err != nil {
			log.Printf("⚠️ Failed to start health checker: %v", err)
		}
	} else {
		log.Println("⚠️ Provider health checks disabled (HEALTH_CHECK_INTERVAL=0)")
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(jwtAuth, userService, stateService)
	chatHandler := handlers.NewChatHandler(chatService)
	toolsHandler := handlers.NewToolsHandler(reviewService)
	calendarHandler := handlers.NewCalendarHandler(calendarService)
	aptitudeHandler := handlers.NewAptitudeHandler(aptitudeService)
	stateHandler := handlers.NewStateHandler(stateService)
	healthHandler := handlers.NewHealthHandler(db, completionService)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Placement Helper v1.0",
		ReadTimeout:  150 * time.Second, // completions can take up to 2 minutes
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  150 * time.Second,
		BodyLimit:    handlers.MaxUploadSize + 1024*1024, // uploads plus headroom
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("placementhelper")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// CORS configuration with environment-based origins
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowedOrigins != "*",
	}))

	// Brute-force limiter on the credential endpoints (per IP)
	authLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Auth limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many authentication attempts. Please wait a minute.",
			})
		},
	})

	// Routes

	// Health check (public)
	app.Get("/health", healthHandler.Health)

	api := app.Group("/api")
	authRequired := middleware.AuthMiddleware(jwtAuth)

	// Authentication
	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authLimiter, authHandler.Register)
	authRoutes.Post("/login", authLimiter, authHandler.Login)
	authRoutes.Post("/logout", authRequired, authHandler.Logout)
	authRoutes.Get("/me", authRequired, authHandler.GetCurrentUser)

	// Chat assistant
	chat := api.Group("/chat", authRequired)
	chat.Post("/message", chatHandler.SendMessage)
	chat.Get("/sessions", chatHandler.ListSessions)
	chat.Get("/session", chatHandler.GetSession)

	// Resume/JD tools
	tools := api.Group("/tools", authRequired)
	tools.Post("/compare", toolsHandler.Compare)
	tools.Post("/ats", toolsHandler.ScoreATS)
	tools.Post("/cover-letter", toolsHandler.CoverLetter)
	tools.Post("/extract", toolsHandler.Extract)

	// Placement calendar
	calendar := api.Group("/calendar", authRequired)
	calendar.Get("/", calendarHandler.Listing)
	calendar.Post("/entries", calendarHandler.AddEntry)
	calendar.Post("/complete", calendarHandler.MarkDone)

	// Aptitude question generator
	aptitude := api.Group("/aptitude", authRequired)
	aptitude.Get("/topics", aptitudeHandler.Topics)
	aptitude.Post("/generate", aptitudeHandler.Generate)

	// Full working state snapshot
	api.Get("/state", authRequired, stateHandler.GetState)

	log.Println("✅ Routes registered")

	// Start server
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()
	log.Printf("🌐 Server listening on port %s", cfg.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	if healthChecker != nil {
		healthChecker.Stop()
	}

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		log.Printf("⚠️ Server shutdown error: %v", err)
	}

	// Flush every live session before closing the database
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	stateService.FlushAll(ctx)

	log.Println("👋 Server stopped")
}
