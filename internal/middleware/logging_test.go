package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLogger_CarriesRequestAndUser(t *testing.T) {
	var buf bytes.Buffer
	prev := observability.Logger
	observability.InitLogging(observability.LoggingConfig{Format: "json", Output: &buf})
	t.Cleanup(func() { observability.Logger = prev })

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(ContextMiddleware())
	app.Use(StructuredLogger())
	app.Get("/me", func(c *fiber.Ctx) error {
		c.Locals("userID", "user-42")
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()

	out := buf.String()
	assert.Contains(t, out, `"msg":"request processed"`)
	assert.Contains(t, out, `"status":204`)
	assert.Contains(t, out, `"user_id":"user-42"`)
	assert.Contains(t, out, `"request_id":"`+resp.Header.Get("X-Request-ID")+`"`)
}
