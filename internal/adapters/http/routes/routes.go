package routes

import (
	"mpp-antrian/internal/adapters/http/handlers"
	"mpp-antrian/internal/adapters/http/middleware"
	"mpp-antrian/internal/adapters/persistence/repositories"
	"mpp-antrian/internal/config"
	"mpp-antrian/internal/core/domain"
	"mpp-antrian/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config, notifyService *services.NotifyService) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	queueRepo := repositories.NewQueueRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, cfg)
	queueService := services.NewQueueService(queueRepo, catalogRepo, notifyService)
	assignmentService := services.NewAssignmentService(queueRepo, catalogRepo, notifyService)
	statsService := services.NewStatsService(queueRepo, catalogRepo)
	catalogService := services.NewCatalogService(catalogRepo, userRepo)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService)
	queueHandler := handlers.NewQueueHandler(queueService)
	officerHandler := handlers.NewOfficerHandler(assignmentService)
	displayHandler := handlers.NewDisplayHandler(queueService, assignmentService, statsService, notifyService)
	adminHandler := handlers.NewAdminHandler(catalogService, statsService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// API v1 group
	apiV1 := app.Group("/api/v1")

	// Auth routes (public)
	authRoutes := apiV1.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler)

	// Queue routes (public for kiosks; token identifies online visitors)
	queueRoutes := apiV1.Group("/queue")
	setupQueueRoutes(queueRoutes, queueHandler, cfg)

	// Display routes (public, no auth; lobby TVs and the SSE feed)
	displayRoutes := apiV1.Group("/display")
	setupDisplayRoutes(displayRoutes, displayHandler)

	// Officer routes (officer/admin only)
	officerRoutes := apiV1.Group("/officer")
	officerRoutes.Use(middleware.AuthMiddleware(cfg))
	officerRoutes.Use(middleware.RequireRole(domain.RoleOfficer, domain.RoleAdmin))
	setupOfficerRoutes(officerRoutes, officerHandler, displayHandler)

	// Admin routes (admin only)
	adminRoutes := apiV1.Group("/admin")
	adminRoutes.Use(middleware.AuthMiddleware(cfg))
	adminRoutes.Use(middleware.RequireRole(domain.RoleAdmin))
	setupAdminRoutes(adminRoutes, adminHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler) {
	router.Post("/register", handler.Register)
	router.Post("/login", handler.Login)
}

// setupQueueRoutes configures visitor queue routes
func setupQueueRoutes(router fiber.Router, handler *handlers.QueueHandler, cfg *config.Config) {
	// Registration and tracking work anonymously from kiosks; a bearer
	// token, when present, binds the ticket to the visitor account.
	router.Post("/register", middleware.OptionalAuthMiddleware(cfg), handler.Register)
	router.Get("/track", handler.Track)
	router.Get("/tickets/:id", handler.GetTicket)
	router.Get("/tickets/:id/logs", handler.GetTicketLogs)
	router.Get("/tickets/:id/position", handler.Position)

	// Cancelling requires the ticket owner to be logged in.
	router.Post("/tickets/:id/cancel", middleware.AuthMiddleware(cfg), handler.Cancel)
}

// setupDisplayRoutes configures public lobby display routes
func setupDisplayRoutes(router fiber.Router, handler *handlers.DisplayHandler) {
	router.Get("/services", handler.GetServices)
	router.Get("/services/:id/waiting", handler.GetWaiting)
	router.Get("/services/:id/accepting", handler.GetAccepting)
	router.Get("/services/:id/estimate", handler.GetEstimate)
	router.Get("/called", handler.GetCurrentlyCalled)
	router.Get("/statistics", handler.GetTodayStatistics)
	router.Get("/events", handler.Events)
}

// setupOfficerRoutes configures counter dispatch routes
func setupOfficerRoutes(router fiber.Router, handler *handlers.OfficerHandler, displayHandler *handlers.DisplayHandler) {
	router.Post("/call-next", handler.CallNext)
	router.Post("/tickets/:id/call", handler.CallQueue)
	router.Post("/tickets/:id/recall", handler.Recall)
	router.Post("/tickets/:id/start", handler.Start)
	router.Post("/tickets/:id/complete", handler.Complete)
	router.Post("/tickets/:id/skip", handler.Skip)
	router.Post("/tickets/:id/transfer", handler.Transfer)
	router.Post("/availability", handler.SetAvailability)
	router.Get("/statistics", displayHandler.GetTodayStatistics)
}

// setupAdminRoutes configures catalog management and reporting routes
func setupAdminRoutes(router fiber.Router, handler *handlers.AdminHandler) {
	router.Get("/services", handler.ListServices)
	router.Post("/services", handler.CreateService)
	router.Get("/services/:id", handler.GetService)
	router.Patch("/services/:id", handler.UpdateService)
	router.Put("/services/:id/schedules", handler.SetSchedules)
	router.Get("/services/:id/officers", handler.ListOfficers)
	router.Post("/officers", handler.CreateOfficer)
	router.Patch("/officers/:id", handler.UpdateOfficer)
	router.Get("/statistics", handler.GetDailyStatistics)
	router.Get("/history", handler.GetHistory)
}
