package main

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/lalonchera/internal/config"
	"github.com/example/lalonchera/internal/database"
	"github.com/example/lalonchera/internal/routes"
	"github.com/example/lalonchera/internal/services"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	app := fiber.New(fiber.Config{
		AppName:      "La Lonchera Backend",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, db, cfg)

	expiry := services.NewExpiryService(db, cfg.OrderExpiry)
	expiry.Start()
	defer expiry.Stop()

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}

// errorHandler maps engine errors onto the response envelope. Domain errors
// carry their own status and user-facing message; anything else is logged
// server-side and hidden behind a generic message.
func errorHandler(c *fiber.Ctx, err error) error {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return c.Status(domainErr.Status).JSON(fiber.Map{
			"success": false,
			"error":   domainErr.Message,
			"code":    domainErr.Code,
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"success": false,
			"error":   fiberErr.Message,
		})
	}

	log.Printf("[HTTP] unhandled error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   "something went wrong, please try again",
	})
}
