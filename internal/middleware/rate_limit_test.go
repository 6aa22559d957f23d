package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qna-go-api/internal/middleware"
)

func TestRateLimitKeysByCaller(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("caller_id", c.Get("X-Caller"))
		return c.Next()
	})
	app.Use(middleware.RateLimit("ai", 1, time.Minute))
	app.Post("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	call := func(caller string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Caller", caller)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	require.Equal(t, fiber.StatusOK, call("user_a"))
	require.Equal(t, fiber.StatusTooManyRequests, call("user_a"))
	require.Equal(t, fiber.StatusOK, call("user_b"))
}
