package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/lalonchera/internal/config"
	"github.com/example/lalonchera/internal/handlers"
	"github.com/example/lalonchera/internal/middleware"
	"github.com/example/lalonchera/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	processor := services.NewProcessorClient(cfg.ProcessorBaseURL, cfg.ProcessorAPIKey)
	pricing := services.NewPricingProvider(db)
	composer := services.NewComposer(services.NewGormMenuCatalog(db), services.NewGormAddressBook(db))
	resolver := services.NewIdentityResolver(services.NewGormCustomerDirectory(db))
	lifecycle := services.NewLifecycle(db, processor, cfg.Currency)

	var guard services.CheckoutGuard
	if cfg.RedisAddr != "" {
		guard = services.NewRedisCheckoutGuard(cfg.RedisAddr)
	} else {
		guard = services.NewMemoryCheckoutGuard()
	}

	authHandler := handlers.NewAuthHandler(db, cfg)
	profileHandler := handlers.NewProfileHandler(db)
	menuHandler := handlers.NewMenuHandler(db)
	orderHandler := handlers.NewOrderHandler(db, composer, resolver, pricing, lifecycle, guard)
	adminHandler := handlers.NewAdminHandler(db, lifecycle, pricing)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Public menu browsing
	api.Get("/menu/current", menuHandler.GetCurrentMenu)
	api.Get("/menu/items", menuHandler.ListMenuItems)
	api.Get("/menu/weeks/:id", menuHandler.GetWeeklyMenu)

	// Checkout accepts both guests and authenticated customers.
	optional := api.Group("", middleware.OptionalAuthMiddleware(cfg))
	optional.Post("/orders", orderHandler.CreateOrder)
	optional.Post("/orders/:id/pay", orderHandler.PayOrder)
	api.Get("/orders/guest/:token", orderHandler.GetGuestOrder)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Put("/orders/:id", orderHandler.UpdateOrder)
	protected.Post("/orders/:id/cancel", orderHandler.CancelOrder)

	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile", profileHandler.UpdateProfile)
	protected.Get("/profile/addresses", profileHandler.ListAddresses)
	protected.Post("/profile/addresses", profileHandler.CreateAddress)
	protected.Put("/profile/addresses/:id", profileHandler.UpdateAddress)
	protected.Delete("/profile/addresses/:id", profileHandler.DeleteAddress)

	// Admin routes
	admin := api.Group("/admin", middleware.AuthMiddleware(cfg), middleware.AdminMiddleware(db))

	admin.Get("/pricing", adminHandler.GetPricingConfig)
	admin.Put("/pricing", adminHandler.UpdatePricingConfig)

	admin.Post("/menu/items", menuHandler.CreateMenuItem)
	admin.Put("/menu/items/:id", menuHandler.UpdateMenuItem)
	admin.Post("/menu/weeks", menuHandler.CreateWeeklyMenu)
	admin.Put("/menu/weeks/:id/items", menuHandler.SetWeeklyMenuItems)
	admin.Post("/menu/weeks/:id/publish", menuHandler.PublishWeeklyMenu)

	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Get("/orders/:id", adminHandler.GetOrder)
	admin.Put("/orders/:id/status", adminHandler.UpdateOrderStatus)
	admin.Post("/orders/:id/payment", adminHandler.ConfirmPayment)
	admin.Post("/orders/:id/credit-account", adminHandler.MarkCreditAccount)
	admin.Post("/orders/:id/refund", adminHandler.RefundOrder)

	admin.Get("/stats", adminHandler.DashboardStats)
}
