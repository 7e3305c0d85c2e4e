package server

import (
	"log/slog"

	"inkwell/internal/featureflags"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ActivityHandler streams post activity events over a WebSocket.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) ActivityHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			observability.Logger.Warn("activity socket rejected",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !s.flags.Enabled(featureflags.ActivityStream, currentUserID(c)) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Feature", featureflags.ActivityStream))
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}

// GetFeatures handles GET /api/features
// @Summary Feature flags evaluated for the caller
// @Tags meta
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{flags=map[string]bool}
// @Router /features [get]
func (s *Server) GetFeatures(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"flags": s.flags.Snapshot(currentUserID(c))})
}
