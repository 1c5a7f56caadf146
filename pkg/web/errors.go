package web

import (
	"github.com/dukex/flowforge/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

// handleServiceError maps lifecycle errors to problem documents.
func handleServiceError(c fiber.Ctx, err error) error {
	status, problemType := fiber.StatusInternalServerError, "internal_error"

	switch {
	case services.IsNotFoundError(err):
		status, problemType = fiber.StatusNotFound, "not_found"
	case services.IsForbiddenError(err):
		status, problemType = fiber.StatusForbidden, "forbidden"
	case services.IsValidationError(err):
		status, problemType = fiber.StatusBadRequest, "validation_error"
	case services.IsConflictError(err):
		status, problemType = fiber.StatusConflict, "conflict"
	case services.IsExecutionError(err):
		status, problemType = fiber.StatusBadGateway, "execution_error"
	}

	detail := err.Error()
	if status == fiber.StatusInternalServerError {
		// Storage details are not exposed
		detail = "internal error"
	}

	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(problem)
}
