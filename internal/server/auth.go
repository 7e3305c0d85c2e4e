package server

import (
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// AuthRequired returns the authentication middleware. It accepts a bearer token
// and, on WebSocket routes only, a token query parameter, since browsers cannot
// set headers on an upgrade request.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c.Get(fiber.HeaderAuthorization))
		if tokenString == "" && strings.HasPrefix(c.Path(), "/api/ws") {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		user, err := s.authService.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			return respondError(c, err)
		}

		c.Locals("userID", user.ID)
		// Sync to UserContext for logging and downstream services
		c.SetUserContext(observability.WithUserID(c.UserContext(), user.ID))

		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// currentUserID returns the id stored by AuthRequired.
func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}
