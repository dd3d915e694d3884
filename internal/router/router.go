package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gifttech/academy-api/internal/config"
	"github.com/gifttech/academy-api/internal/handler"
	"github.com/gifttech/academy-api/internal/middleware"
	"github.com/gifttech/academy-api/internal/models"
	"github.com/gifttech/academy-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	CourseHandler   *handler.CourseHandler
	UserHandler     *handler.UserHandler
	ActivityHandler *handler.ActivityHandler
	UploadHandler   *handler.UploadHandler
	SeedHandler     *handler.SeedHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	protected := middleware.JWTProtected(cfg.JWTSecret)
	optional := middleware.JWTOptional(cfg.JWTSecret)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		auth.Use("/login", middleware.RateLimit("login", cfg.LoginRateLimit, cfg.LoginRateWindow))
		deps.AuthHandler.Register(auth, protected)
	}

	if deps.CourseHandler != nil {
		courses := api.Group("/courses", optional)
		deps.CourseHandler.Register(courses, protected, adminOnly)
	}

	if deps.UserHandler != nil {
		users := api.Group("/users", protected)
		deps.UserHandler.Register(users)
	}

	if deps.ActivityHandler != nil {
		activity := api.Group("/activity", protected, adminOnly)
		deps.ActivityHandler.Register(activity)
	}

	if deps.UploadHandler != nil {
		uploads := api.Group("/uploads", protected, adminOnly)
		deps.UploadHandler.Register(uploads)
	}

	if deps.SeedHandler != nil && cfg.SeedEnabled {
		seed := api.Group("/seed")
		deps.SeedHandler.Register(seed)
	}
}
