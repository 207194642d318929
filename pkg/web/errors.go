package web

import (
	"github.com/dukex/subflow/pkg/persistence"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// problemContentType is the media type of RFC 7807 bodies.
const problemContentType = "application/problem+json"

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem, problemContentType)
}

func notFound(c fiber.Ctx, kind, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem, problemContentType)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem, problemContentType)
}

// handleStoreError maps persistence errors of the workflow endpoints to problems.
func handleStoreError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow_not_found", "workflow not found")
	case persistence.IsRunNotFound(err):
		return notFound(c, "session_not_found", "session not found")
	default:
		return internalError(c, err)
	}
}
