package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edukita-dev/edukita-api/internal/config"
	"github.com/edukita-dev/edukita-api/internal/handler"
	"github.com/edukita-dev/edukita-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AccessCodeHandler *handler.AccessCodeHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AccessCodeHandler == nil {
		return
	}

	guards := handler.RouteGuards{
		Staff:       middleware.RequireRole("teacher", "admin"),
		Admin:       middleware.RequireRole("admin"),
		Student:     middleware.RequireRole("student"),
		RedeemLimit: middleware.RateLimit("redeem", cfg.RedeemRateLimit, cfg.RedeemRateWindow),
	}

	courses := api.Group("/courses", jwtMiddleware)
	deps.AccessCodeHandler.RegisterCourseRoutes(courses, guards)

	codes := api.Group("/access-codes", jwtMiddleware)
	deps.AccessCodeHandler.Register(codes, guards)
}
