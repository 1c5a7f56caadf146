// Package main provides the FlowForge API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/flowforge/pkg/services"
	"github.com/dukex/flowforge/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger    *slog.Logger
	lifecycle *services.Lifecycle
	validate  *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	lifecycle *services.Lifecycle,
	validate *validator.Validate,
) *API {
	return &API{
		logger:    logger,
		lifecycle: lifecycle,
		validate:  validate,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.lifecycle, a.validate)

	app := fiber.New()
	app.Use(cors.New(cors.Config{
		ExposeHeaders: []string{fiber.HeaderETag, fiber.HeaderContentDisposition},
	}))
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("FlowForge API")
	})

	handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	a.logger.Info("Starting API server", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
