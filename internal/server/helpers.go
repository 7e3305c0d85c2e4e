package server

import (
	"log/slog"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// mapServiceError maps an error returned by the service layer to an HTTP status.
func mapServiceError(err error) int {
	return models.StatusFor(err)
}

// respondError writes err with its mapped status. Server-side failures are logged
// with their cause, which the response body does not carry.
func respondError(c *fiber.Ctx, err error) error {
	status := mapServiceError(err)
	if status >= fiber.StatusInternalServerError {
		observability.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

// parsePagination reads page and limit. Missing, non-numeric and non-positive
// values fall back to the defaults; limit is capped.
func parsePagination(c *fiber.Ctx) (int, int) {
	page := c.QueryInt("page", service.DefaultPage)
	limit := c.QueryInt("limit", service.DefaultLimit)
	return service.NormalizePage(page, limit)
}

func invalidBody(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewValidationError("Invalid request body"))
}
