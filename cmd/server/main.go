package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"smartbin-backend/internal/config"
	"smartbin-backend/internal/database"
	"smartbin-backend/internal/handlers"
	"smartbin-backend/internal/metrics"
	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/services"
	"smartbin-backend/internal/store"
	"smartbin-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 SMARTBIN BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration (defaults + optional YAML file + env overrides)
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("❌ FATAL ERROR: Failed to load configuration: %v", err)
	}
	log.Println("✅ Configuration loaded")

	if cfg.Auth.JWTSecret == "" {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: APP_JWT_SECRET environment variable is required")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal("APP_JWT_SECRET environment variable is required")
	}

	if cfg.Server.DatabaseURL == "" {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: DATABASE_URL environment variable is required")
		log.Println("   Please set DATABASE_URL in the deployment variables or .env file")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal("DATABASE_URL environment variable is required")
	}

	// Connect to database
	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(cfg.Server.DatabaseURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("   This is usually caused by:")
		log.Println("   1. Wrong DATABASE_URL format")
		log.Println("   2. PostgreSQL service is down")
		log.Println("   3. Network connectivity issue")
		log.Println("   4. Invalid credentials")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer db.Close()
	log.Println("✅ Database connection established")

	// Run migrations
	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database migrations failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("✅ Database migrations completed")

	// Seed database
	log.Println("🌱 Seeding database with initial data...")
	if err := database.SeedUsers(db, cfg.Auth.BcryptCost); err != nil {
		log.Fatalf("❌ FATAL ERROR: User seeding failed: %v", err)
	}
	log.Println("✅ Users seeded successfully")

	if err := database.SeedBins(db); err != nil {
		log.Fatalf("❌ FATAL ERROR: Bins seeding failed: %v", err)
	}
	log.Println("✅ Bins seeded successfully")

	s := store.NewPostgres(db)

	// Initialize Firebase Cloud Messaging
	// Supports both file path and base64-encoded credentials (for cloud deployments)
	var fcmService *services.FCMService
	fcmCredsBase64 := os.Getenv("FIREBASE_CREDENTIALS_BASE64")

	if fcmCredsBase64 != "" {
		fcmService, err = services.NewFCMServiceFromBase64(fcmCredsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else {
		fcmCredentialsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")
		if fcmCredentialsFile == "" {
			fcmCredentialsFile = "./firebase-service-account.json"
		}

		fcmService, err = services.NewFCMService(fcmCredentialsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from file")
		}
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	// Prometheus collectors
	metrics.RegisterDefault()
	metrics.RegisterWebsocketClients(wsHub.GetClientCount)

	// Services
	commandService := services.NewCommandService(s, cfg.Commands)
	var notifier services.Notifier
	if fcmService != nil {
		notifier = fcmService
	}
	anomalyService := services.NewAnomalyService(s, cfg.Anomaly, wsHub, notifier)

	// Background anomaly sweep
	if cfg.Anomaly.SweepInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Anomaly.SweepInterval)
			defer ticker.Stop()
			for range ticker.C {
				anomalyService.RunAllChecks(context.Background())
			}
		}()
		log.Printf("✅ Anomaly sweep scheduled every %s", cfg.Anomaly.SweepInterval)
	} else {
		log.Println("⚠️  Anomaly sweep disabled (sweep_interval is 0)")
	}

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Metrics)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Prometheus scrape endpoint
	r.Method("GET", "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub, cfg.Auth.JWTSecret))

	// Authentication routes (no auth required, tighter rate limit)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthLimiter(cfg.RateLimit))
		r.Post("/api/auth/login", handlers.Login(s, cfg.Auth))
		r.Post("/api/auth/refresh", handlers.Refresh(s, cfg.Auth))
	})

	// Device-facing routes (API key auth, per-device rate limit)
	r.Route("/api/iot", func(r chi.Router) {
		r.Use(middleware.DeviceLimiter(cfg.RateLimit))
		r.Use(middleware.DeviceAuth(s))

		r.Post("/update", handlers.IoTUpdate(s, anomalyService, wsHub))
		r.Get("/commands", handlers.IoTGetCommands(commandService))
		r.Post("/commands/{commandId}/ack", handlers.IoTAckCommand(s, commandService))
	})

	// Public feedback submission
	r.With(middleware.GeneralLimiter(cfg.RateLimit)).Post("/api/feedback", handlers.SubmitFeedback(s))

	// Admin panel routes (JWT auth)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.GeneralLimiter(cfg.RateLimit))
		r.Use(middleware.Auth(cfg.Auth.JWTSecret))

		r.Post("/auth/logout", handlers.Logout(s))
		r.Get("/auth/me", handlers.Me(s))
		r.Patch("/auth/profile", handlers.UpdateProfile(s, cfg.Auth))

		// Read and day-to-day operations, any authenticated role
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", "manager", "operator"))

			// Bins
			r.Get("/bins", handlers.GetBins(s))
			r.Get("/bins/{id}", handlers.GetBin(s))
			r.Get("/bins/{id}/images", handlers.GetBinImages(s))

			// Commands
			r.Post("/commands", handlers.CreateCommand(commandService))
			r.Get("/commands", handlers.GetCommands(s))
			r.Get("/commands/{id}", handlers.GetCommand(s))

			// Alerts
			r.Get("/alerts", handlers.GetAlerts(s))
			r.Get("/alerts/{id}", handlers.GetAlert(s))
			r.Patch("/alerts/{id}/resolve", handlers.ResolveAlert(s))

			// Image verification
			r.Patch("/images/{id}/verify", handlers.VerifyImage(s))

			// Workers
			r.Get("/workers", handlers.GetWorkers(s))
			r.Get("/workers/{id}", handlers.GetWorker(s))
			r.Get("/workers/{id}/stats", handlers.GetWorkerStats(s))

			// Maintenance
			r.Get("/maintenance", handlers.GetMaintenanceLogs(s))
			r.Post("/maintenance", handlers.CreateMaintenanceLog(s))
			r.Patch("/maintenance/{id}", handlers.UpdateMaintenanceLog(s))

			// Feedback review
			r.Get("/feedback", handlers.GetFeedback(s))
			r.Get("/feedback/stats", handlers.GetFeedbackStats(s))
			r.Patch("/feedback/{id}", handlers.ReviewFeedback(s))

			// Analytics
			r.Get("/analytics/summary", handlers.GetDashboardSummary(s))
			r.Get("/analytics/categories", handlers.GetCategoryPerformance(s))
			r.Get("/analytics/waste-count", handlers.GetWasteCount(s))
			r.Get("/analytics/trends", handlers.GetWasteTrends(s))
		})

		// Management of the fleet and staff
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", "manager"))

			r.Post("/bins", handlers.CreateBin(s))
			r.Patch("/bins/{id}", handlers.UpdateBin(s))

			r.Post("/workers", handlers.CreateWorker(s))
			r.Patch("/workers/{id}", handlers.UpdateWorker(s))
			r.Put("/workers/{id}/bins", handlers.AssignWorkerBins(s))

			r.Post("/anomaly/sweep", handlers.RunAnomalySweep(anomalyService))
		})

		// Destructive and credential operations, admin only
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))

			r.Delete("/bins/{id}", handlers.DeleteBin(s))
			r.Post("/bins/{id}/rotate-key", handlers.RotateBinAPIKey(s))
			r.Delete("/commands/{id}", handlers.DeleteCommand(s))
			r.Delete("/images/{id}", handlers.DeleteImage(s))
			r.Delete("/workers/{id}", handlers.DeleteWorker(s))
			r.Delete("/maintenance/{id}", handlers.DeleteMaintenanceLog(s))
			r.Delete("/feedback/{id}", handlers.DeleteFeedback(s))
			r.Post("/users", handlers.CreateUser(s, cfg.Auth))
		})
	})

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", cfg.Server.Port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Start server
	if err := http.ListenAndServe(":"+cfg.Server.Port, r); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Server failed to start")
		log.Printf("   Error: %v", err)
		log.Printf("   Port: %s", cfg.Server.Port)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
}
