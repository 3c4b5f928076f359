package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"mpp-antrian/internal/adapters/http/middleware"
	"mpp-antrian/internal/adapters/http/routes"
	"mpp-antrian/internal/adapters/persistence/models"
	"mpp-antrian/internal/adapters/persistence/repositories"
	"mpp-antrian/internal/config"
	"mpp-antrian/internal/core/services"

	"github.com/gofiber/fiber/v2"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed users, services and counters
	if err := config.SeedData(db); err != nil {
		log.Printf("⚠️ Warning: Failed to seed data: %v", err)
	}

	// SSE hub for displays and visitor notifications
	notifyService := services.NewNotifyService()

	// End-of-day sweep expiring tickets left active overnight (00:05 daily)
	housekeeping := services.NewHousekeepingService(repositories.NewQueueRepository(db))
	if err := housekeeping.Start(); err != nil {
		log.Fatalf("❌ Failed to start housekeeping: %v", err)
	}
	defer housekeeping.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "MPP Antrian API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db and cfg for dependency injection)
	routes.Setup(app, db, cfg, notifyService)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
