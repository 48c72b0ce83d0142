package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"

	"linguaquest/internal/broadcast"
	"linguaquest/internal/config"
	"linguaquest/internal/database"
	"linguaquest/internal/handlers"
	"linguaquest/internal/repository"
	"linguaquest/internal/security"
	"linguaquest/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	// Initialize database (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	statsRepo := repository.NewStatsRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	unlockRepo := repository.NewUnlockRepository(db)
	idemRepo := repository.NewIdempotencyRepository(db)

	// Initialize broadcast hub and services
	hub := broadcast.NewHub()
	statsService := service.NewStatsService(statsRepo, hub)
	streakService := service.NewStreakService(statsRepo, hub)
	unlockService := service.NewUnlockService(unlockRepo, progressRepo)
	progressService := service.NewProgressService(progressRepo, statsService, unlockService)

	reminderService, err := service.NewReminderService(statsRepo, cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize reminder service: %v", err)
	}

	// Initialize handlers
	limiter := security.NewRateLimiter(60, time.Minute)
	middleware := handlers.NewMiddleware(cfg.JWTSecret, limiter, idemRepo)
	statsHandler := handlers.NewStatsHandler(statsService)
	progressHandler := handlers.NewProgressHandler(progressService)
	streakHandler := handlers.NewStreakHandler(streakService)
	unlockHandler := handlers.NewUnlockHandler(unlockService)
	wsHandler := handlers.NewWSHandler(hub)

	// Setup routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /user/stats", middleware.RequireAuth(statsHandler.GetStats))
	mux.HandleFunc("POST /user/stats", middleware.RequireAuth(middleware.RateLimit(middleware.Idempotent(statsHandler.UpdateStats))))

	mux.HandleFunc("POST /progress/user/session", middleware.RequireAuth(middleware.RateLimit(middleware.Idempotent(progressHandler.SaveSession))))
	mux.HandleFunc("GET /progress/user/session", middleware.RequireAuth(progressHandler.GetSession))
	mux.HandleFunc("DELETE /progress/user/session", middleware.RequireAuth(middleware.RateLimit(progressHandler.DeleteSession)))
	mux.HandleFunc("POST /progress/finish", middleware.RequireAuth(middleware.RateLimit(middleware.Idempotent(progressHandler.Finish))))

	mux.HandleFunc("POST /streak/tick", middleware.RequireAuth(middleware.RateLimit(middleware.Idempotent(streakHandler.Tick))))

	mux.HandleFunc("GET /lessons/unlocked/{userId}", middleware.RequireAuth(unlockHandler.UnlockedLevels))

	mux.HandleFunc("GET /ws/user", middleware.RequireAuth(wsHandler.Connect))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Background jobs
	scheduler := gocron.NewScheduler(time.UTC)
	if reminderService.IsEnabled() {
		scheduler.Every(cfg.ReminderInterval).Do(func() {
			if err := reminderService.SweepLapsingStreaks(context.Background()); err != nil {
				log.Printf("Streak reminder sweep failed: %v", err)
			}
		})
	}
	scheduler.Every(24).Hours().Do(func() {
		// Replay protection only needs keys for the retry horizon.
		deleted, err := idemRepo.DeleteOlderThan(time.Now().Add(-7 * 24 * time.Hour))
		if err != nil {
			log.Printf("Idempotency key cleanup failed: %v", err)
			return
		}
		if deleted > 0 {
			log.Printf("Cleaned up %d stale idempotency keys", deleted)
		}
	})
	scheduler.StartAsync()
	defer scheduler.Stop()

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
