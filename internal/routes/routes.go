package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/jiyashah21/meallink/internal/config"
	"github.com/jiyashah21/meallink/internal/handlers"
	"github.com/jiyashah21/meallink/internal/middleware"
	"github.com/jiyashah21/meallink/internal/models"
	"github.com/jiyashah21/meallink/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	donationService := services.NewDonationService(db, cfg.CapClaimQuantity, cfg.DefaultImageURL)

	authHandler := handlers.NewAuthHandler(db, cfg)
	donationHandler := handlers.NewDonationHandler(db, donationService, telegramService)
	feedbackHandler := handlers.NewFeedbackHandler(db)
	profileHandler := handlers.NewProfileHandler(db)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Public listing with filters, used by the browse page
	api.Get("/donations", donationHandler.List)

	// Protected routes. Role middleware is attached per route because
	// restaurant and NGO operations share the /donations prefix.
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	restaurantOnly := middleware.RequireRole(models.RoleRestaurant)
	protected.Post("/donations", restaurantOnly, donationHandler.Create)
	protected.Get("/donations/mine", restaurantOnly, donationHandler.ListMine)
	protected.Put("/donations/:id", restaurantOnly, donationHandler.Edit)
	protected.Post("/donations/:id/toggle", restaurantOnly, donationHandler.ToggleStatus)

	protected.Post("/donations/:id/claim", middleware.RequireRole(models.RoleNGO), donationHandler.Claim)

	protected.Post("/feedback", feedbackHandler.Create)
	protected.Get("/profile", profileHandler.GetProfile)
}
