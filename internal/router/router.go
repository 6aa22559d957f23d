package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/qna-go-api/internal/config"
	"github.com/noah-isme/qna-go-api/internal/handler"
	"github.com/noah-isme/qna-go-api/internal/middleware"
	"github.com/noah-isme/qna-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	QuestionHandler     *handler.QuestionHandler
	AnswerHandler       *handler.AnswerHandler
	CommentHandler      *handler.CommentHandler
	LikeHandler         *handler.LikeHandler
	SaveHandler         *handler.SaveHandler
	SubscriptionHandler *handler.SubscriptionHandler
	ChatHandler         *handler.ChatHandler
	TestHandler         *handler.TestHandler
	AuthMiddleware      fiber.Handler
	Database            handler.Pinger
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	authMiddleware := deps.AuthMiddleware
	if authMiddleware == nil {
		authMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Database))

	// Every resource accepts an optional session; handlers decide when a caller is required.
	secured := api.Group("", authMiddleware)
	aiLimit := middleware.RateLimit("ai", cfg.AIRateLimit, cfg.AIRateWindow)

	if deps.QuestionHandler != nil {
		deps.QuestionHandler.Register(secured)
	}
	if deps.AnswerHandler != nil {
		deps.AnswerHandler.Register(secured)
	}
	if deps.CommentHandler != nil {
		deps.CommentHandler.Register(secured)
	}
	if deps.LikeHandler != nil {
		deps.LikeHandler.Register(secured)
	}
	if deps.SaveHandler != nil {
		deps.SaveHandler.Register(secured)
	}
	if deps.SubscriptionHandler != nil {
		deps.SubscriptionHandler.Register(api)
	}
	if deps.ChatHandler != nil {
		deps.ChatHandler.Register(secured)
		deps.ChatHandler.RegisterStream(secured, aiLimit)
	}
	if deps.TestHandler != nil {
		deps.TestHandler.Register(secured, aiLimit)
	}
}
