// Package main provides a stand-in for the execution service answering POST /execute.
package main

import (
	"log/slog"

	"github.com/dukex/flowforge/pkg/execution"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// NewServer exposes executor over HTTP using the execution service wire format.
func NewServer(log *slog.Logger, executor execution.Executor) *fiber.App {
	app := fiber.New()
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())

	app.Post("/execute", func(c fiber.Ctx) error {
		var req execution.Request
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(execution.Response{Error: "invalid request body"})
		}

		output, err := executor.Execute(c.Context(), req)
		if err != nil {
			log.WarnContext(c.Context(), "execution failed", "flow_id", req.FlowID, "cell_id", req.CellID, "error", err)

			return c.Status(fiber.StatusUnprocessableEntity).JSON(execution.Response{Error: err.Error()})
		}

		return c.JSON(execution.Response{Output: output})
	})

	return app
}
